package gen

import (
	"math/rand"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/logic/mathx"
)

// Seed offsets keep the independent per-tile streams apart.
const (
	saltBlend = 101
	saltPick  = 202
	saltPath  = 303
)

type Config struct {
	Noise      NoiseConfig
	Thresholds Thresholds
}

// Generator is immutable after NewGenerator and safe to share between
// sessions.
type Generator struct {
	seed       int64
	sampler    *Sampler
	thresholds Thresholds
	palette    Palette
}

func NewGenerator(cfg Config, pal Palette) (*Generator, error) {
	if cfg.Thresholds == nil {
		cfg.Thresholds = DefaultThresholds
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if err := pal.Validate(); err != nil {
		return nil, err
	}
	s, err := NewSampler(cfg.Noise)
	if err != nil {
		return nil, err
	}
	th := make(Thresholds, len(cfg.Thresholds))
	copy(th, cfg.Thresholds)
	return &Generator{
		seed:       cfg.Noise.Seed,
		sampler:    s,
		thresholds: th,
		palette:    pal,
	}, nil
}

func (g *Generator) Seed() int64 { return g.seed }

func (g *Generator) Palette() Palette { return g.palette }

func (g *Generator) Noise(t atlas.Tile) float64 {
	return g.sampler.Sample(t)
}

func (g *Generator) Category(t atlas.Tile) Category {
	return g.thresholds.Classify(g.sampler.Sample(t))
}

// Pool resolves the candidate tiles for t. The result depends only on the
// seed and t, so a chunk reloaded later sees the same pool.
func (g *Generator) Pool(t atlas.Tile) (Category, []atlas.TileID) {
	c := g.Category(t)
	sig := g.palette.Pools[c]
	if !c.Vegetated() || g.palette.GrassBlend == 0 {
		out := make([]atlas.TileID, len(sig))
		copy(out, sig)
		return c, out
	}
	out := make([]atlas.TileID, 0, len(sig)+g.palette.GrassBlend)
	out = append(out, sig...)
	out = append(out, g.grassSubsample(t)...)
	return c, out
}

// grassSubsample draws GrassBlend distinct grass tiles with a partial
// Fisher-Yates shuffle driven by the tile hash.
func (g *Generator) grassSubsample(t atlas.Tile) []atlas.TileID {
	grass := make([]atlas.TileID, len(g.palette.Grass))
	copy(grass, g.palette.Grass)
	h := mathx.Hash2(g.seed+saltBlend, t.X, t.Y)
	n := g.palette.GrassBlend
	for i := 0; i < n; i++ {
		h = mathx.Mix64(h)
		j := i + int(h%uint64(len(grass)-i))
		grass[i], grass[j] = grass[j], grass[i]
	}
	return grass[:n]
}

// TileAt picks from Pool with a roll seeded by (seed, t): every client and
// every reload renders the same tile.
func (g *Generator) TileAt(t atlas.Tile) atlas.TileID {
	_, pool := g.Pool(t)
	roll := mathx.Hash2(g.seed+saltPick, t.X, t.Y)
	return pool[roll%uint64(len(pool))]
}

// RandomTileAt picks from Pool with the caller's generator.
func (g *Generator) RandomTileAt(t atlas.Tile, r *rand.Rand) atlas.TileID {
	_, pool := g.Pool(t)
	return pool[r.Intn(len(pool))]
}
