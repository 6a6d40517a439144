package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TileSize     int      `yaml:"tile_size"` // pixels
	Viewport     Viewport `yaml:"viewport"`
	EvictDivisor int      `yaml:"evict_divisor"`

	Noise            Noise     `yaml:"noise"`
	Thresholds       []float64 `yaml:"thresholds"`
	GrassBlend       int       `yaml:"grass_blend"`
	PathKeepPermille int       `yaml:"path_keep_permille"`

	SnapshotEveryMoves int `yaml:"snapshot_every_moves"`
}

// Viewport is measured in tiles.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Noise struct {
	Frequency float64 `yaml:"frequency"`
	Scale     float64 `yaml:"scale"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
	Alpha     float64 `yaml:"alpha"`
	Beta      float64 `yaml:"beta"`
	Octaves   int32   `yaml:"octaves"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TileSize:        48,
		Viewport:        Viewport{Width: 32, Height: 18},
		EvictDivisor:    4,
		Noise: Noise{
			Frequency: 100,
			Scale:     256,
			Min:       0,
			Max:       160,
			Alpha:     2,
			Beta:      2,
			Octaves:   1,
		},
		Thresholds:         []float64{8, 15, 20, 26, 37, 52, 78, 104, 156},
		GrassBlend:         4,
		PathKeepPermille:   650,
		SnapshotEveryMoves: 500,
	}
}

// Load reads path over Defaults, so a file only needs the keys it changes.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.ProtocolVersion == "" {
		return fmt.Errorf("protocol_version is empty")
	}
	if t.TileSize <= 0 {
		return fmt.Errorf("tile_size must be > 0")
	}
	if t.Viewport.Width < 2 || t.Viewport.Height < 2 {
		return fmt.Errorf("viewport must be at least 2x2 tiles")
	}
	if t.EvictDivisor <= 0 {
		return fmt.Errorf("evict_divisor must be > 0")
	}
	if !(t.Noise.Frequency > 0) || !(t.Noise.Scale > 0) {
		return fmt.Errorf("noise frequency and scale must be > 0")
	}
	if !(t.Noise.Max > t.Noise.Min) {
		return fmt.Errorf("noise max must exceed min")
	}
	if t.Noise.Octaves <= 0 {
		return fmt.Errorf("noise octaves must be > 0")
	}
	for i := 1; i < len(t.Thresholds); i++ {
		if !(t.Thresholds[i] > t.Thresholds[i-1]) {
			return fmt.Errorf("thresholds must be strictly increasing (index %d)", i)
		}
	}
	if t.GrassBlend < 0 {
		return fmt.Errorf("grass_blend must be >= 0")
	}
	if t.PathKeepPermille < 0 || t.PathKeepPermille > 1000 {
		return fmt.Errorf("path_keep_permille must be within [0,1000]")
	}
	if t.SnapshotEveryMoves < 0 {
		return fmt.Errorf("snapshot_every_moves must be >= 0")
	}
	return nil
}
