package structure

import (
	"errors"
	"fmt"
	"strings"

	"tilerealm.dev/internal/sim/world/atlas"
)

var ErrMultipleIntersections = errors.New("multiple structures intersect coordinate")

// Placed anchors a structure at its top-left tile. Tile y grows toward the
// structure's visual bottom, so the footprint spans
// [TopLeft.X, TopLeft.X+W-1] x [TopLeft.Y, TopLeft.Y+H-1].
type Placed struct {
	TopLeft   atlas.Tile
	Structure *Structure
}

func (p Placed) Intersects(c atlas.Tile) bool {
	w, h := p.Structure.Width(), p.Structure.Height()
	return c.Y >= p.TopLeft.Y && c.Y <= p.TopLeft.Y+h-1 &&
		c.X >= p.TopLeft.X && c.X <= p.TopLeft.X+w-1
}

// TileAt maps c into the matrix. The top tile row (TopLeft.Y) reads the last
// matrix row.
func (p Placed) TileAt(c atlas.Tile) (atlas.TileID, bool) {
	if !p.Intersects(c) {
		return "", false
	}
	row := p.TopLeft.Y - c.Y + (p.Structure.Height() - 1)
	col := c.X - p.TopLeft.X
	return p.Structure.Cell(row, col)
}

// Annotation reports the annotation of the tile at c, if any.
func (p Placed) Annotation(c atlas.Tile) (Kind, bool) {
	id, ok := p.TileAt(c)
	if !ok {
		return "", false
	}
	return p.Structure.Annotations.Of(id)
}

// Footprint is the inclusive tile rectangle the placement may cover.
func (p Placed) Footprint() (minX, minY, maxX, maxY int) {
	return p.TopLeft.X, p.TopLeft.Y, p.TopLeft.X + p.Structure.Width() - 1, p.TopLeft.Y + p.Structure.Height() - 1
}

func (p Placed) String() string {
	return fmt.Sprintf("%s@%s", p.Structure.ID, p.TopLeft)
}

// Provider answers which placed structure claims a tile. It is read-only after
// construction.
type Provider struct {
	placed []Placed
}

func NewProvider(placed ...Placed) *Provider {
	out := make([]Placed, len(placed))
	copy(out, placed)
	return &Provider{placed: out}
}

func (p *Provider) Placements() []Placed {
	out := make([]Placed, len(p.placed))
	copy(out, p.placed)
	return out
}

// Intersecting returns the structure covering c, or nil. Two or more hits is a
// layout error and is reported, never resolved by picking one.
func (p *Provider) Intersecting(c atlas.Tile) (*Placed, error) {
	var hit []int
	for i := range p.placed {
		if p.placed[i].Intersects(c) {
			hit = append(hit, i)
		}
	}
	switch len(hit) {
	case 0:
		return nil, nil
	case 1:
		return &p.placed[hit[0]], nil
	}
	names := make([]string, len(hit))
	for i, h := range hit {
		names[i] = p.placed[h].String()
	}
	return nil, fmt.Errorf("%w: %s at %s", ErrMultipleIntersections, strings.Join(names, ", "), c)
}

// Validate rejects layouts whose footprints overlap anywhere.
func (p *Provider) Validate() error {
	for i := range p.placed {
		ax0, ay0, ax1, ay1 := p.placed[i].Footprint()
		for j := i + 1; j < len(p.placed); j++ {
			bx0, by0, bx1, by1 := p.placed[j].Footprint()
			if ax0 <= bx1 && bx0 <= ax1 && ay0 <= by1 && by0 <= ay1 {
				return fmt.Errorf("%w: %s overlaps %s", ErrMultipleIntersections, p.placed[i], p.placed[j])
			}
		}
	}
	return nil
}
