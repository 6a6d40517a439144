package gen

import (
	"github.com/zyedidia/generic/mapset"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/logic/mathx"
)

const DefaultPathKeepPermille = 650

// PathMap is the set of tiles drawn as footpath. Only a seeded share of each
// laid-out bound is kept so paths look worn rather than paved.
type PathMap struct {
	tiles mapset.Set[atlas.Tile]
}

func NewPathMap(seed int64, bounds []atlas.CartesianBound, keepPermille int) *PathMap {
	keep := uint64(ClampPermille(keepPermille))
	tiles := mapset.New[atlas.Tile]()
	for _, b := range bounds {
		b.EachTile(func(t atlas.Tile) {
			if mathx.Hash2(seed+saltPath, t.X, t.Y)%1000 < keep {
				tiles.Put(t)
			}
		})
	}
	return &PathMap{tiles: tiles}
}

func (m *PathMap) Has(t atlas.Tile) bool {
	if m == nil {
		return false
	}
	return m.tiles.Has(t)
}

func (m *PathMap) Len() int {
	if m == nil {
		return 0
	}
	return m.tiles.Size()
}
