package world

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/structure"
	"tilerealm.dev/internal/sim/world/terrain/gen"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

type Layer string

const (
	LayerBase     Layer = "BASE"
	LayerBuilding Layer = "BUILDING"
)

// Placement is one image the renderer draws. Pixel coordinates are the tile
// centre: index*tileSize + tileSize/2.
type Placement struct {
	Tile       atlas.Tile
	PixelX     float64
	PixelY     float64
	Image      atlas.TileID
	Layer      Layer
	Solid      bool
	Category   gen.Category   // base layer only
	Structure  string         // building layer only
	Annotation structure.Kind // building layer only, may be empty
}

type ChunkPlacements struct {
	Chunk      store.ChunkKey
	Placements []Placement
}

// PlacementsAt resolves every layer at t: the terrain tile (or footpath) and,
// if a structure covers t, the structure cell above it. Structure cells are
// solid unless annotated IGNORE_PHYSICS or GATEWAY.
func (w *World) PlacementsAt(t atlas.Tile) ([]Placement, error) {
	px, py := w.pixel(t)

	base := Placement{
		Tile:     t,
		PixelX:   px,
		PixelY:   py,
		Layer:    LayerBase,
		Category: w.gen.Category(t),
	}
	if w.paths.Has(t) {
		base.Image = w.gen.Palette().Path
	} else {
		base.Image = w.gen.TileAt(t)
	}
	out := []Placement{base}

	p, err := w.structures.Intersecting(t)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return out, nil
	}
	id, ok := p.TileAt(t)
	if !ok {
		return out, nil
	}
	kind, _ := p.Structure.Annotations.Of(id)
	out = append(out, Placement{
		Tile:       t,
		PixelX:     px,
		PixelY:     py,
		Image:      id,
		Layer:      LayerBuilding,
		Solid:      kind != structure.IgnorePhysics && kind != structure.Gateway,
		Structure:  p.Structure.ID,
		Annotation: kind,
	})
	return out, nil
}

// ChunkPlacements resolves every tile of chunk k in the order a session
// would load it. It does not touch any session state.
func (w *World) ChunkPlacements(k store.ChunkKey) (ChunkPlacements, error) {
	out := ChunkPlacements{Chunk: k}
	for _, t := range atlas.SortedTiles(store.ChunkBound(w.trackerConfig(), k).Tiles()) {
		ps, err := w.PlacementsAt(t)
		if err != nil {
			return ChunkPlacements{}, err
		}
		out.Placements = append(out.Placements, ps...)
	}
	return out, nil
}

// DigestPlacements hashes everything a renderer sees in ps, in order. Two
// loads of the same chunk produce the same digest only if every image, layer
// and collision flag matches.
func DigestPlacements(ps []Placement) string {
	h := sha256.New()
	for _, p := range ps {
		fmt.Fprintf(h, "%d,%d,%g,%g,%s,%s,%t,%d,%s,%s\n",
			p.Tile.X, p.Tile.Y, p.PixelX, p.PixelY, p.Image, p.Layer, p.Solid, p.Category, p.Structure, p.Annotation)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (w *World) pixel(t atlas.Tile) (float64, float64) {
	ts := float64(w.cfg.TileSize)
	return float64(t.X)*ts + ts/2, float64(t.Y)*ts + ts/2
}
