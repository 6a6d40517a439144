package world

// WorldMetrics is a read-only view of the realm's runtime counters. It is safe
// to read from HTTP handlers while sessions move.
type WorldMetrics struct {
	Seed int64 `json:"seed"`

	Sessions       int64  `json:"sessions"`
	Moves          uint64 `json:"moves"`
	ChunksLoaded   uint64 `json:"chunks_loaded"`
	ChunksUnloaded uint64 `json:"chunks_unloaded"`
	Placements     uint64 `json:"placements"`

	Structures int `json:"structures"`
	PathTiles  int `json:"path_tiles"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	return WorldMetrics{
		Seed:           w.cfg.Seed,
		Sessions:       w.sessions.Load(),
		Moves:          w.moves.Load(),
		ChunksLoaded:   w.chunksLoaded.Load(),
		ChunksUnloaded: w.chunksUnloaded.Load(),
		Placements:     w.placements.Load(),
		Structures:     len(w.structures.Placements()),
		PathTiles:      w.paths.Len(),
	}
}
