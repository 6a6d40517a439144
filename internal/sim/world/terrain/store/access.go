package store

import (
	"fmt"
	"sort"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/logic/mathx"
)

func (t *Tracker) ChunkOf(tile atlas.Tile) ChunkKey {
	return ChunkKey{
		CX: mathx.FloorDiv(tile.X, t.cfg.ViewportWidth),
		CY: mathx.FloorDiv(tile.Y, t.cfg.ViewportHeight),
	}
}

// ToIndex pairs a chunk coordinate into a single integer. Coordinates beyond
// mathx.MaxCantorExtent on either axis are refused rather than risk aliasing.
func ToIndex(k ChunkKey) (uint64, error) {
	if !mathx.InCantorRange(k.CX, k.CY) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, k)
	}
	return mathx.CantorPairSigned(k.CX, k.CY), nil
}

func (t *Tracker) IsLoaded(k ChunkKey) bool {
	idx, err := ToIndex(k)
	if err != nil {
		return false
	}
	_, ok := t.chunks[idx]
	return ok
}

func (t *Tracker) Get(k ChunkKey) (*Chunk, bool) {
	idx, err := ToIndex(k)
	if err != nil {
		return nil, false
	}
	ch, ok := t.chunks[idx]
	return ch, ok
}

// CreateChunk registers an empty chunk at k. An existing entry is replaced
// without being unloaded; callers check IsLoaded first.
func (t *Tracker) CreateChunk(k ChunkKey) (*Chunk, error) {
	idx, err := ToIndex(k)
	if err != nil {
		return nil, err
	}
	ch := &Chunk{key: k}
	t.chunks[idx] = ch
	return ch, nil
}

func (t *Tracker) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(t.chunks))
	for _, ch := range t.chunks {
		keys = append(keys, ch.key)
	}
	sortKeys(keys)
	return keys
}

// Bound is the inclusive tile rectangle a chunk covers. Tile y grows toward
// the top edge of the returned bound.
func (t *Tracker) Bound(k ChunkKey) atlas.CartesianBound {
	return ChunkBound(t.cfg, k)
}

// ChunkBound is Tracker.Bound without a tracker.
func ChunkBound(cfg TrackerConfig, k ChunkKey) atlas.CartesianBound {
	w, h := cfg.ViewportWidth, cfg.ViewportHeight
	x0, y0 := k.CX*w, k.CY*h
	x1, y1 := x0+w-1, y0+h-1
	return atlas.MustBound(
		atlas.Of(float64(x1), float64(y1)),
		atlas.Of(float64(x1), float64(y0)),
		atlas.Of(float64(x0), float64(y1)),
		atlas.Of(float64(x0), float64(y0)),
	)
}

// Adjacent lists the eight neighbours of k: top, below, left, right, then the
// diagonals top-left, top-right, bottom-left, bottom-right.
func Adjacent(k ChunkKey) []ChunkKey {
	x, y := k.CX, k.CY
	return []ChunkKey{
		{x, y + 1},
		{x, y - 1},
		{x - 1, y},
		{x + 1, y},
		{x - 1, y + 1},
		{x + 1, y + 1},
		{x - 1, y - 1},
		{x + 1, y - 1},
	}
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CY < keys[j].CY
	})
}
