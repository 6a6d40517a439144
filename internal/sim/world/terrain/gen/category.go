package gen

import (
	"fmt"
	"strings"
)

type Category uint8

const (
	DeepWater Category = iota
	Water
	Beach
	Grass
	Bush
	Shrub
	Vine
	Forest
	Snow
	SnowRock

	categoryCount
)

var categoryNames = [...]string{
	DeepWater: "DEEP_WATER",
	Water:     "WATER",
	Beach:     "BEACH",
	Grass:     "GRASS",
	Bush:      "BUSH",
	Shrub:     "SHRUB",
	Vine:      "VINE",
	Forest:    "FOREST",
	Snow:      "SNOW",
	SnowRock:  "SNOW_ROCK",
}

func (c Category) String() string {
	if c < categoryCount {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

func ParseCategory(s string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, s) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown terrain category %q", s)
}

// Vegetated categories blend their pool with a subsample of plain grass.
func (c Category) Vegetated() bool {
	switch c {
	case Bush, Shrub, Vine, Forest:
		return true
	}
	return false
}

func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}

// Thresholds holds the exclusive upper noise bound of every category but the
// last, in category order. A value at or above the final bound is SnowRock.
type Thresholds []float64

var DefaultThresholds = Thresholds{8, 15, 20, 26, 37, 52, 78, 104, 156}

func (th Thresholds) Validate() error {
	if len(th) != int(categoryCount)-1 {
		return fmt.Errorf("thresholds: want %d values, got %d", int(categoryCount)-1, len(th))
	}
	for i := 1; i < len(th); i++ {
		if !(th[i] > th[i-1]) {
			return fmt.Errorf("thresholds: %v at %d is not above %v", th[i], i, th[i-1])
		}
	}
	return nil
}

func (th Thresholds) Classify(v float64) Category {
	for i, bound := range th {
		if v < bound {
			return Category(i)
		}
	}
	return Category(len(th))
}
