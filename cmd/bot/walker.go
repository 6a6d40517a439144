package main

import (
	"math/rand"

	"tilerealm.dev/internal/protocol"
)

// walker wanders one tile at a time and never steps onto a tile a loaded
// chunk marked solid. It keeps heading the same way until blocked.
type walker struct {
	rng    *rand.Rand
	placed bool
	at     [2]int
	dir    int
	solid  map[[2]int]bool
	chunks map[[2]int][][2]int
}

var steps = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

func newWalker(rng *rand.Rand) *walker {
	return &walker{
		rng:    rng,
		dir:    rng.Intn(len(steps)),
		solid:  map[[2]int]bool{},
		chunks: map[[2]int][][2]int{},
	}
}

func (w *walker) apply(c protocol.ChunksMsg) {
	w.at = c.Tile
	w.placed = true
	for _, ref := range c.Unloaded {
		for _, t := range w.chunks[ref.Key] {
			delete(w.solid, t)
		}
		delete(w.chunks, ref.Key)
	}
	for _, ch := range c.Loaded {
		var solid [][2]int
		for _, p := range ch.Placements {
			if p.Solid {
				w.solid[p.Tile] = true
				solid = append(solid, p.Tile)
			}
		}
		w.chunks[ch.Key] = solid
	}
}

// step returns the next tile to move to. When boxed in it stays put.
func (w *walker) step() [2]int {
	if w.rng.Intn(8) == 0 {
		w.dir = w.rng.Intn(len(steps))
	}
	for i := 0; i < len(steps); i++ {
		d := (w.dir + i) % len(steps)
		next := [2]int{w.at[0] + steps[d][0], w.at[1] + steps[d][1]}
		if !w.solid[next] {
			w.dir = d
			return next
		}
	}
	return w.at
}
