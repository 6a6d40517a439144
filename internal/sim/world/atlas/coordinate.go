// Package atlas holds the plane geometry shared by terrain, chunk tracking and
// structure placement: coordinates, tiles and axis-aligned bounds.
package atlas

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Delimiter separates the axes in the string form of a coordinate.
const Delimiter = "#"

var ErrMalformedCoordinate = errors.New("malformed coordinate")

// Coordinate is a continuous point on the plane (sub-tile precision).
// Construct with Of so that negative zero is normalised.
type Coordinate struct {
	X float64
	Y float64
}

// Tile is a grid-aligned point on the plane.
type Tile struct {
	X int
	Y int
}

func Of(x, y float64) Coordinate {
	return Coordinate{X: normZero(x), Y: normZero(y)}
}

func T(x, y int) Tile {
	return Tile{X: x, Y: y}
}

func normZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

func (c Coordinate) IsDiscrete() bool {
	return c.X == math.Trunc(c.X) && c.Y == math.Trunc(c.Y)
}

// Tile converts an already-discrete coordinate. It reports false when either
// axis has a fractional part or does not fit in an int.
func (c Coordinate) Tile() (Tile, bool) {
	if !c.IsDiscrete() || !fitsInt(c.X) || !fitsInt(c.Y) {
		return Tile{}, false
	}
	return Tile{X: int(c.X), Y: int(c.Y)}, true
}

// fitsInt reports whether v lies in [MinInt, MaxInt]. -MinInt is a power of
// two, so both bounds are exact in float64.
func fitsInt(v float64) bool {
	return v >= float64(math.MinInt) && v < -float64(math.MinInt)
}

func (c Coordinate) Floor() Tile {
	return Tile{X: int(math.Floor(c.X)), Y: int(math.Floor(c.Y))}
}

func (c Coordinate) Ceil() Tile {
	return Tile{X: int(math.Ceil(c.X)), Y: int(math.Ceil(c.Y))}
}

func (c Coordinate) Round() Tile {
	return Tile{X: int(math.Round(c.X)), Y: int(math.Round(c.Y))}
}

func (c Coordinate) Add(dx, dy float64) Coordinate {
	return Of(c.X+dx, c.Y+dy)
}

func (c Coordinate) String() string {
	return strconv.FormatFloat(normZero(c.X), 'f', -1, 64) + Delimiter + strconv.FormatFloat(normZero(c.Y), 'f', -1, 64)
}

func (t Tile) Coordinate() Coordinate {
	return Of(float64(t.X), float64(t.Y))
}

func (t Tile) Add(dx, dy int) Tile {
	return Tile{X: t.X + dx, Y: t.Y + dy}
}

func (t Tile) String() string {
	return strconv.Itoa(t.X) + Delimiter + strconv.Itoa(t.Y)
}

// ParseCoordinate is the inverse of Coordinate.String.
func ParseCoordinate(s string) (Coordinate, error) {
	xs, ys, err := split(s)
	if err != nil {
		return Coordinate{}, err
	}
	x, errX := strconv.ParseFloat(xs, 64)
	y, errY := strconv.ParseFloat(ys, 64)
	if errX != nil || errY != nil || isBad(x) || isBad(y) {
		return Coordinate{}, fmt.Errorf("%w: %q has a non-numeric axis", ErrMalformedCoordinate, s)
	}
	return Of(x, y), nil
}

// ParseTile is the inverse of Tile.String. Each axis must be a base-10
// integer that fits in an int; fractions and exponents are rejected.
func ParseTile(s string) (Tile, error) {
	xs, ys, err := split(s)
	if err != nil {
		return Tile{}, err
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return Tile{}, fmt.Errorf("%w: %q is not a pair of integers", ErrMalformedCoordinate, s)
	}
	return Tile{X: x, Y: y}, nil
}

func split(s string) (string, string, error) {
	if strings.Count(s, Delimiter) != 1 {
		return "", "", fmt.Errorf("%w: %q must contain exactly one %q", ErrMalformedCoordinate, s, Delimiter)
	}
	xs, ys, _ := strings.Cut(s, Delimiter)
	return strings.TrimSpace(xs), strings.TrimSpace(ys), nil
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
