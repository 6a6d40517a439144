package main

import (
	"fmt"
	"strings"

	"tilerealm.dev/internal/sim/world"
	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/structure"
	"tilerealm.dev/internal/sim/world/terrain/gen"
)

var categoryGlyphs = map[gen.Category]byte{
	gen.DeepWater: '~',
	gen.Water:     '-',
	gen.Beach:     ':',
	gen.Grass:     '.',
	gen.Bush:      ',',
	gen.Shrub:     ';',
	gen.Vine:      '"',
	gen.Forest:    'T',
	gen.Snow:      '*',
	gen.SnowRock:  '^',
}

const (
	glyphPath    = '='
	glyphSolid   = '#'
	glyphDoor    = 'D'
	glyphGateway = '+'
	glyphOpen    = 'o'
	glyphCentre  = '@'
)

// render draws width x height tiles around centre, top row first.
func render(w *world.World, centre atlas.Tile, width, height int) (string, error) {
	x0 := centre.X - width/2
	y1 := centre.Y + height/2
	var b strings.Builder
	b.Grow((width + 1) * height)
	for y := y1; y > y1-height; y-- {
		for x := x0; x < x0+width; x++ {
			t := atlas.T(x, y)
			if t == centre {
				b.WriteByte(glyphCentre)
				continue
			}
			ps, err := w.PlacementsAt(t)
			if err != nil {
				return "", fmt.Errorf("tile %s: %w", t, err)
			}
			b.WriteByte(glyph(w, ps))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func glyph(w *world.World, ps []world.Placement) byte {
	top := ps[len(ps)-1]
	if top.Layer == world.LayerBuilding {
		switch {
		case top.Annotation == structure.Door:
			return glyphDoor
		case top.Annotation == structure.Gateway:
			return glyphGateway
		case top.Solid:
			return glyphSolid
		default:
			return glyphOpen
		}
	}
	if top.Image == w.Generator().Palette().Path {
		return glyphPath
	}
	if g, ok := categoryGlyphs[top.Category]; ok {
		return g
	}
	return '?'
}

func legendText() string {
	var b strings.Builder
	b.WriteString("legend:\n")
	for c := gen.DeepWater; c <= gen.SnowRock; c++ {
		fmt.Fprintf(&b, "  %c %s\n", categoryGlyphs[c], c)
	}
	fmt.Fprintf(&b, "  %c path\n  %c structure (solid)\n  %c door\n  %c gateway\n  %c structure (walkable)\n  %c centre\n",
		glyphPath, glyphSolid, glyphDoor, glyphGateway, glyphOpen, glyphCentre)
	return b.String()
}
