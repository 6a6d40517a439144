// Package structure places prefabricated tile matrices (buildings, bridges,
// props) into the world and answers which structure cell covers a tile.
package structure

import (
	"fmt"
	"sort"

	"tilerealm.dev/internal/sim/world/atlas"
)

type Kind string

const (
	Door          Kind = "DOOR"
	IgnorePhysics Kind = "IGNORE_PHYSICS"
	Gateway       Kind = "GATEWAY"
)

func (k Kind) Valid() bool {
	switch k {
	case Door, IgnorePhysics, Gateway:
		return true
	}
	return false
}

// Annotations partitions tile ids into kinds. A tile belongs to at most one
// kind.
type Annotations struct {
	byKind map[Kind][]atlas.TileID
	byTile map[atlas.TileID]Kind
}

func NewAnnotations(m map[Kind][]atlas.TileID) (Annotations, error) {
	a := Annotations{
		byKind: map[Kind][]atlas.TileID{},
		byTile: map[atlas.TileID]Kind{},
	}
	kinds := make([]Kind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if !k.Valid() {
			return Annotations{}, fmt.Errorf("unknown annotation kind %q", k)
		}
		for _, id := range m[k] {
			if prev, ok := a.byTile[id]; ok && prev != k {
				return Annotations{}, fmt.Errorf("tile %s annotated as both %s and %s", id, prev, k)
			}
			if _, ok := a.byTile[id]; ok {
				continue
			}
			a.byTile[id] = k
			a.byKind[k] = append(a.byKind[k], id)
		}
	}
	return a, nil
}

func (a Annotations) Of(id atlas.TileID) (Kind, bool) {
	k, ok := a.byTile[id]
	return k, ok
}

func (a Annotations) Tiles(k Kind) []atlas.TileID {
	out := make([]atlas.TileID, len(a.byKind[k]))
	copy(out, a.byKind[k])
	return out
}

// Structure is an immutable tile matrix. Row 0 is the visual bottom row, so a
// matrix reads upside down compared to the sprite sheet it was cut from. Nil
// cells and cells past the end of a short row are empty.
type Structure struct {
	ID          string
	Sheet       string
	Matrix      [][]*int
	Annotations Annotations
}

func New(id, sheet string, matrix [][]*int, ann Annotations) (*Structure, error) {
	if id == "" {
		return nil, fmt.Errorf("structure id is empty")
	}
	if sheet == "" {
		return nil, fmt.Errorf("structure %s: sheet is empty", id)
	}
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil, fmt.Errorf("structure %s: matrix needs a non-empty bottom row", id)
	}
	for r, row := range matrix {
		if len(row) > len(matrix[0]) {
			return nil, fmt.Errorf("structure %s: row %d is wider than the bottom row", id, r)
		}
		for c, cell := range row {
			if cell != nil && *cell < 0 {
				return nil, fmt.Errorf("structure %s: negative tile index at %d,%d", id, r, c)
			}
		}
	}
	m := make([][]*int, len(matrix))
	for r, row := range matrix {
		m[r] = make([]*int, len(row))
		for c, cell := range row {
			if cell != nil {
				v := *cell
				m[r][c] = &v
			}
		}
	}
	return &Structure{ID: id, Sheet: sheet, Matrix: m, Annotations: ann}, nil
}

func (s *Structure) Width() int  { return len(s.Matrix[0]) }
func (s *Structure) Height() int { return len(s.Matrix) }

// Cell returns the tile at matrix position (row, col).
func (s *Structure) Cell(row, col int) (atlas.TileID, bool) {
	if row < 0 || row >= len(s.Matrix) || col < 0 || col >= len(s.Matrix[row]) {
		return "", false
	}
	v := s.Matrix[row][col]
	if v == nil {
		return "", false
	}
	return atlas.SheetTile(s.Sheet, *v), true
}
