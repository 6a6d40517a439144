package atlas

import (
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// BoundDifference carries both one-sided differences of two bounds.
type BoundDifference struct {
	AMinusB mapset.Set[Tile]
	BMinusA mapset.Set[Tile]
}

// Union returns every tile in a or b.
func Union(a, b CartesianBound) mapset.Set[Tile] {
	out := mapset.New[Tile]()
	a.EachTile(func(t Tile) { out.Put(t) })
	b.EachTile(func(t Tile) { out.Put(t) })
	return out
}

// Intersection returns the tiles present in both a and b. Tiles are plain
// values with normalised axes, so equal coordinates always compare equal.
func Intersection(a, b CartesianBound) mapset.Set[Tile] {
	inB := b.Tiles()
	out := mapset.New[Tile]()
	a.EachTile(func(t Tile) {
		if inB.Has(t) {
			out.Put(t)
		}
	})
	return out
}

// Difference returns a∖b and b∖a.
func Difference(a, b CartesianBound) BoundDifference {
	inA, inB := a.Tiles(), b.Tiles()
	d := BoundDifference{AMinusB: mapset.New[Tile](), BMinusA: mapset.New[Tile]()}
	inA.Each(func(t Tile) {
		if !inB.Has(t) {
			d.AMinusB.Put(t)
		}
	})
	inB.Each(func(t Tile) {
		if !inA.Has(t) {
			d.BMinusA.Put(t)
		}
	})
	return d
}

// SortedTiles flattens a set in row-major order (top row first, then left to
// right) so callers get a stable iteration order.
func SortedTiles(s mapset.Set[Tile]) []Tile {
	out := make([]Tile, 0, s.Size())
	s.Each(func(t Tile) { out = append(out, t) })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y > out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
