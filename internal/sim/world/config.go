package world

import (
	"fmt"

	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world/terrain/gen"
)

type WorldConfig struct {
	ID   string
	Seed int64

	TileSize int // pixels

	// Chunk size in tiles. A chunk is exactly one viewport.
	ViewportWidth  int
	ViewportHeight int
	EvictDivisor   int

	Noise            gen.NoiseConfig // Seed is taken from WorldConfig.Seed
	Thresholds gen.Thresholds

	// nil takes the default; zero disables grass blending or footpaths.
	GrassBlend       *int
	PathKeepPermille *int

	// Operational parameters. These are included in snapshots.
	SnapshotEveryMoves int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "realm"
	}
	if c.TileSize <= 0 {
		c.TileSize = 48
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 32
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 18
	}
	if c.EvictDivisor <= 0 {
		c.EvictDivisor = 4
	}
	def := gen.DefaultNoiseConfig(c.Seed)
	if c.Noise.Frequency <= 0 {
		c.Noise.Frequency = def.Frequency
	}
	if c.Noise.Scale <= 0 {
		c.Noise.Scale = def.Scale
	}
	if c.Noise.Max <= c.Noise.Min {
		c.Noise.Min, c.Noise.Max = def.Min, def.Max
	}
	if c.Noise.Alpha == 0 {
		c.Noise.Alpha = def.Alpha
	}
	if c.Noise.Beta == 0 {
		c.Noise.Beta = def.Beta
	}
	if c.Noise.Octaves <= 0 {
		c.Noise.Octaves = def.Octaves
	}
	c.Noise.Seed = c.Seed
	if len(c.Thresholds) == 0 {
		c.Thresholds = gen.DefaultThresholds
	}
	if c.GrassBlend == nil {
		c.GrassBlend = intOpt(gen.DefaultPalette().GrassBlend)
	}
	if c.PathKeepPermille == nil {
		c.PathKeepPermille = intOpt(gen.DefaultPathKeepPermille)
	}
	if c.SnapshotEveryMoves <= 0 {
		c.SnapshotEveryMoves = 500
	}
}

func (c WorldConfig) validate() error {
	// Adjacent chunks are loaded on every move; they must sit inside the
	// eviction distance or they would be dropped on the next move.
	if c.ViewportWidth < c.EvictDivisor || c.ViewportHeight < c.EvictDivisor {
		return fmt.Errorf("viewport %dx%d is smaller than evict divisor %d", c.ViewportWidth, c.ViewportHeight, c.EvictDivisor)
	}
	if *c.GrassBlend < 0 {
		return fmt.Errorf("grass blend must be >= 0, got %d", *c.GrassBlend)
	}
	if *c.PathKeepPermille < 0 || *c.PathKeepPermille > 1000 {
		return fmt.Errorf("path keep permille must be in [0,1000], got %d", *c.PathKeepPermille)
	}
	return nil
}

func intOpt(v int) *int { return &v }

// ConfigFromTuning maps tuning.yaml onto a world config for the given seed.
func ConfigFromTuning(id string, seed int64, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:             id,
		Seed:           seed,
		TileSize:       t.TileSize,
		ViewportWidth:  t.Viewport.Width,
		ViewportHeight: t.Viewport.Height,
		EvictDivisor:   t.EvictDivisor,
		Noise: gen.NoiseConfig{
			Seed:      seed,
			Frequency: t.Noise.Frequency,
			Scale:     t.Noise.Scale,
			Min:       t.Noise.Min,
			Max:       t.Noise.Max,
			Alpha:     t.Noise.Alpha,
			Beta:      t.Noise.Beta,
			Octaves:   t.Noise.Octaves,
		},
		Thresholds:         gen.Thresholds(t.Thresholds),
		GrassBlend:         intOpt(t.GrassBlend),
		PathKeepPermille:   intOpt(t.PathKeepPermille),
		SnapshotEveryMoves: t.SnapshotEveryMoves,
	}
}
