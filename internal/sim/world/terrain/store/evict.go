package store

import "tilerealm.dev/internal/sim/world/logic/mathx"

// Update evicts every tracked chunk that has drifted too far from the viewer's
// chunk: more than ViewportWidth/EvictDivisor chunks apart horizontally or
// ViewportHeight/EvictDivisor vertically. Evicted chunks are unloaded before
// removal. The evicted keys are returned sorted.
//
// Every call scans all tracked chunks, which is fine for the handful a single
// viewer holds.
func (t *Tracker) Update(viewer ChunkKey) []ChunkKey {
	limX := float64(t.cfg.ViewportWidth) / float64(t.cfg.EvictDivisor)
	limY := float64(t.cfg.ViewportHeight) / float64(t.cfg.EvictDivisor)

	var evicted []ChunkKey
	for idx, ch := range t.chunks {
		dx := float64(mathx.AbsInt(viewer.CX - ch.key.CX))
		dy := float64(mathx.AbsInt(viewer.CY - ch.key.CY))
		if dx > limX || dy > limY {
			ch.Unload()
			delete(t.chunks, idx)
			evicted = append(evicted, ch.key)
		}
	}
	sortKeys(evicted)
	return evicted
}

// Reset unloads every chunk.
func (t *Tracker) Reset() []ChunkKey {
	keys := t.LoadedChunkKeys()
	for idx, ch := range t.chunks {
		ch.Unload()
		delete(t.chunks, idx)
	}
	return keys
}
