// Package gen maps tile coordinates to terrain tiles: seeded Perlin noise picks
// a biome category and the category's pool supplies the tile image.
package gen

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/logic/mathx"
)

// NoiseConfig is fixed for a realm. Only Seed normally varies between realms.
type NoiseConfig struct {
	Seed int64

	// Tile coordinates are divided by Frequency before sampling.
	Frequency float64
	// |noise| is multiplied by Scale and clamped into [Min, Max].
	Scale float64
	Min   float64
	Max   float64

	Alpha   float64
	Beta    float64
	Octaves int32
}

func DefaultNoiseConfig(seed int64) NoiseConfig {
	return NoiseConfig{
		Seed:      seed,
		Frequency: 100,
		Scale:     256,
		Min:       0,
		Max:       160,
		Alpha:     2,
		Beta:      2,
		Octaves:   1,
	}
}

func (c NoiseConfig) Validate() error {
	if !(c.Frequency > 0) {
		return fmt.Errorf("noise frequency must be > 0, got %v", c.Frequency)
	}
	if !(c.Scale > 0) {
		return fmt.Errorf("noise scale must be > 0, got %v", c.Scale)
	}
	if !(c.Max > c.Min) {
		return fmt.Errorf("noise max (%v) must exceed min (%v)", c.Max, c.Min)
	}
	if c.Octaves <= 0 {
		return fmt.Errorf("noise octaves must be > 0, got %d", c.Octaves)
	}
	if c.Alpha == 0 || c.Beta == 0 {
		return fmt.Errorf("noise alpha and beta must be non-zero")
	}
	return nil
}

// Sampler is read-only after construction and may be shared.
type Sampler struct {
	cfg NoiseConfig
	p   *perlin.Perlin
}

func NewSampler(cfg NoiseConfig) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Sampler{
		cfg: cfg,
		p:   perlin.NewPerlin(cfg.Alpha, cfg.Beta, cfg.Octaves, cfg.Seed),
	}, nil
}

func (s *Sampler) Config() NoiseConfig { return s.cfg }

// Sample returns clamp(|perlin(x/freq, y/freq)| * scale, min, max).
func (s *Sampler) Sample(t atlas.Tile) float64 {
	n := s.p.Noise2D(float64(t.X)/s.cfg.Frequency, float64(t.Y)/s.cfg.Frequency)
	return mathx.Clamp(math.Abs(n)*s.cfg.Scale, s.cfg.Min, s.cfg.Max)
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}
