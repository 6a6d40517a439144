package atlas

import (
	"errors"
	"fmt"
	"math"

	"github.com/zyedidia/generic/mapset"
)

var ErrInvariant = errors.New("bound invariant violated")

// InvariantError names the corner relation a bound failed.
type InvariantError struct {
	Rule string
	Got  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("bound invariant %s violated: %s", e.Rule, e.Got)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// CartesianBound is an axis-aligned n×k rectangle on the plane, y pointing up.
//
//	tl ┌──────────┐ tr
//	   │          │
//	bl └──────────┘ br
//
// Corners must satisfy:
//
//	tr.x = br.x   tr.y = tl.y   bl.x = tl.x   bl.y = br.y
//	tr.x > tl.x   tr.y > br.y   br.x > bl.x   tl.y > bl.y
//
// A bound is immutable once built.
type CartesianBound struct {
	tr, br, tl, bl Coordinate
}

// NewBound validates the corner relations one by one so that the returned
// error names the first broken rule.
func NewBound(tr, br, tl, bl Coordinate) (CartesianBound, error) {
	checks := []struct {
		ok   bool
		rule string
		got  string
	}{
		{tr.X == br.X, "tr.x = br.x", fmt.Sprintf("%v != %v", tr.X, br.X)},
		{tr.Y == tl.Y, "tr.y = tl.y", fmt.Sprintf("%v != %v", tr.Y, tl.Y)},
		{bl.X == tl.X, "bl.x = tl.x", fmt.Sprintf("%v != %v", bl.X, tl.X)},
		{bl.Y == br.Y, "bl.y = br.y", fmt.Sprintf("%v != %v", bl.Y, br.Y)},
		{tr.X > tl.X, "tr.x > tl.x", fmt.Sprintf("%v <= %v", tr.X, tl.X)},
		{tr.Y > br.Y, "tr.y > br.y", fmt.Sprintf("%v <= %v", tr.Y, br.Y)},
		{br.X > bl.X, "br.x > bl.x", fmt.Sprintf("%v <= %v", br.X, bl.X)},
		{tl.Y > bl.Y, "tl.y > bl.y", fmt.Sprintf("%v <= %v", tl.Y, bl.Y)},
	}
	for _, c := range checks {
		if !c.ok {
			return CartesianBound{}, &InvariantError{Rule: c.rule, Got: c.got}
		}
	}
	return CartesianBound{
		tr: Of(tr.X, tr.Y),
		br: Of(br.X, br.Y),
		tl: Of(tl.X, tl.Y),
		bl: Of(bl.X, bl.Y),
	}, nil
}

// MustBound is NewBound for static tables; it panics on invalid corners.
func MustBound(tr, br, tl, bl Coordinate) CartesianBound {
	b, err := NewBound(tr, br, tl, bl)
	if err != nil {
		panic(err)
	}
	return b
}

// BoundFromTiles builds the bound spanning two opposite tile corners.
func BoundFromTiles(tl, br Tile) (CartesianBound, error) {
	return NewBound(
		T(br.X, tl.Y).Coordinate(),
		br.Coordinate(),
		tl.Coordinate(),
		T(tl.X, br.Y).Coordinate(),
	)
}

// FromMidPoint builds a square bound of the given radius around c.
func FromMidPoint(c Coordinate, radius float64) (CartesianBound, error) {
	if !(radius > 0) {
		return CartesianBound{}, &InvariantError{Rule: "radius > 0", Got: fmt.Sprint(radius)}
	}
	return FromMidPointAdvanced(c, radius, radius)
}

// FromMidPointAdvanced builds a bound reaching verticalRadius above and below
// c and horizontalRadius to either side.
func FromMidPointAdvanced(c Coordinate, verticalRadius, horizontalRadius float64) (CartesianBound, error) {
	if !(verticalRadius > 0) {
		return CartesianBound{}, &InvariantError{Rule: "verticalRadius > 0", Got: fmt.Sprint(verticalRadius)}
	}
	if !(horizontalRadius > 0) {
		return CartesianBound{}, &InvariantError{Rule: "horizontalRadius > 0", Got: fmt.Sprint(horizontalRadius)}
	}
	return NewBound(
		Of(c.X+horizontalRadius, c.Y+verticalRadius),
		Of(c.X+horizontalRadius, c.Y-verticalRadius),
		Of(c.X-horizontalRadius, c.Y+verticalRadius),
		Of(c.X-horizontalRadius, c.Y-verticalRadius),
	)
}

// NewSquareBound additionally requires width == height.
func NewSquareBound(tr, br, tl, bl Coordinate) (CartesianBound, error) {
	b, err := NewBound(tr, br, tl, bl)
	if err != nil {
		return b, err
	}
	if b.Width() != b.Height() {
		return CartesianBound{}, &InvariantError{Rule: "width = height", Got: fmt.Sprintf("%v != %v", b.Width(), b.Height())}
	}
	return b, nil
}

// NewSquareEvenBound requires a square bound with an even side length.
func NewSquareEvenBound(tr, br, tl, bl Coordinate) (CartesianBound, error) {
	b, err := NewSquareBound(tr, br, tl, bl)
	if err != nil {
		return b, err
	}
	if math.Mod(b.Width(), 2) != 0 {
		return CartesianBound{}, &InvariantError{Rule: "width even", Got: fmt.Sprint(b.Width())}
	}
	return b, nil
}

func (b CartesianBound) TopLeft() Coordinate     { return b.tl }
func (b CartesianBound) TopRight() Coordinate    { return b.tr }
func (b CartesianBound) BottomLeft() Coordinate  { return b.bl }
func (b CartesianBound) BottomRight() Coordinate { return b.br }

func (b CartesianBound) Width() float64 {
	return b.tr.X - b.tl.X
}

func (b CartesianBound) Height() float64 {
	return b.tr.Y - b.br.Y
}

func (b CartesianBound) Area() float64 {
	return b.Width() * b.Height()
}

// MidPoint is the exact centre, possibly fractional.
func (b CartesianBound) MidPoint() Coordinate {
	return Of(b.tr.X-b.Width()/2, b.tr.Y-b.Height()/2)
}

// MidPointFloored floors each axis of MidPoint toward negative infinity. Tile
// alignment depends on this, so it must not truncate toward zero.
func (b CartesianBound) MidPointFloored() Tile {
	return b.MidPoint().Floor()
}

// Contains reports whether t lies inside the bound, edges inclusive.
func (b CartesianBound) Contains(t Tile) bool {
	x, y := float64(t.X), float64(t.Y)
	return x >= b.tl.X && x <= b.tr.X && y >= b.br.Y && y <= b.tr.Y
}

// Tiles enumerates every discrete coordinate inside the bound, all four
// corners included.
func (b CartesianBound) Tiles() mapset.Set[Tile] {
	out := mapset.New[Tile]()
	b.EachTile(func(t Tile) { out.Put(t) })
	return out
}

// EachTile visits the discrete coordinates of the bound row by row from the
// top edge down, left to right.
func (b CartesianBound) EachTile(fn func(Tile)) {
	x0, x1 := int(math.Ceil(b.tl.X)), int(math.Floor(b.tr.X))
	y0, y1 := int(math.Floor(b.tl.Y)), int(math.Ceil(b.bl.Y))
	for y := y0; y >= y1; y-- {
		for x := x0; x <= x1; x++ {
			fn(Tile{X: x, Y: y})
		}
	}
}

func (b CartesianBound) String() string {
	return fmt.Sprintf("bound{tl=%s tr=%s bl=%s br=%s}", b.tl, b.tr, b.bl, b.br)
}
