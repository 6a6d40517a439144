package gen

import (
	"math/rand"
	"testing"

	"tilerealm.dev/internal/sim/world/atlas"
)

func newTestGenerator(t *testing.T, seed int64) *Generator {
	t.Helper()
	g, err := NewGenerator(Config{Noise: DefaultNoiseConfig(seed)}, DefaultPalette())
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestClassifyThresholdEdges(t *testing.T) {
	cases := []struct {
		v    float64
		want Category
	}{
		{0, DeepWater},
		{7.99, DeepWater},
		{8, Water},
		{14.5, Water},
		{15, Beach},
		{20, Grass},
		{26, Bush},
		{37, Shrub},
		{52, Vine},
		{78, Forest},
		{103.9, Forest},
		{104, Snow},
		{155.99, Snow},
		{156, SnowRock},
		{160, SnowRock},
	}
	for _, c := range cases {
		if got := DefaultThresholds.Classify(c.v); got != c.want {
			t.Fatalf("Classify(%v)=%s want %s", c.v, got, c.want)
		}
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	bad := []Thresholds{
		{8, 15, 20},
		{8, 15, 15, 26, 37, 52, 78, 104, 156},
		{8, 15, 20, 26, 37, 52, 78, 156, 104},
	}
	for _, th := range bad {
		if err := th.Validate(); err == nil {
			t.Fatalf("expected error for %v", th)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q)=%v,%v", c.String(), got, err)
		}
	}
	if _, err := ParseCategory("LAVA"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestSampleClampedIntoRange(t *testing.T) {
	s, err := NewSampler(DefaultNoiseConfig(42))
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	for x := -300; x <= 300; x += 7 {
		for y := -300; y <= 300; y += 11 {
			v := s.Sample(atlas.T(x, y))
			if v < 0 || v > 160 {
				t.Fatalf("Sample(%d,%d)=%v outside [0,160]", x, y, v)
			}
		}
	}
}

func TestPoolDeterministicAcrossGenerators(t *testing.T) {
	a := newTestGenerator(t, 1234)
	b := newTestGenerator(t, 1234)
	for x := -60; x <= 60; x += 3 {
		for y := -60; y <= 60; y += 3 {
			tl := atlas.T(x, y)
			ca, pa := a.Pool(tl)
			cb, pb := b.Pool(tl)
			if ca != cb || len(pa) != len(pb) {
				t.Fatalf("pool mismatch at %v: %s/%d vs %s/%d", tl, ca, len(pa), cb, len(pb))
			}
			for i := range pa {
				if pa[i] != pb[i] {
					t.Fatalf("pool mismatch at %v index %d: %s vs %s", tl, i, pa[i], pb[i])
				}
			}
			if a.TileAt(tl) != b.TileAt(tl) {
				t.Fatalf("TileAt mismatch at %v", tl)
			}
			if a.TileAt(tl) != a.TileAt(tl) {
				t.Fatalf("TileAt not repeatable at %v", tl)
			}
		}
	}
}

func TestSeedChangesTerrain(t *testing.T) {
	a := newTestGenerator(t, 1)
	b := newTestGenerator(t, 2)
	diff := 0
	for x := 0; x < 40; x++ {
		for y := 0; y < 40; y++ {
			if a.TileAt(atlas.T(x, y)) != b.TileAt(atlas.T(x, y)) {
				diff++
			}
		}
	}
	if diff == 0 {
		t.Fatalf("different seeds produced identical terrain")
	}
}

func TestVegetatedPoolsBlendDistinctGrass(t *testing.T) {
	g := newTestGenerator(t, 9)
	pal := DefaultPalette()
	grass := map[atlas.TileID]bool{}
	for _, id := range pal.Grass {
		grass[id] = true
	}

	seen := map[Category]bool{}
	for x := -400; x <= 400; x += 5 {
		for y := -400; y <= 400; y += 5 {
			tl := atlas.T(x, y)
			c, pool := g.Pool(tl)
			seen[c] = true
			sig := pal.Pools[c]
			if !c.Vegetated() {
				if len(pool) != len(sig) {
					t.Fatalf("%s at %v: pool %d want %d", c, tl, len(pool), len(sig))
				}
				continue
			}
			if len(pool) != len(sig)+pal.GrassBlend {
				t.Fatalf("%s at %v: pool %d want %d", c, tl, len(pool), len(sig)+pal.GrassBlend)
			}
			blend := pool[len(sig):]
			uniq := map[atlas.TileID]bool{}
			for _, id := range blend {
				if !grass[id] {
					t.Fatalf("%s at %v: %s is not a grass tile", c, tl, id)
				}
				uniq[id] = true
			}
			if len(uniq) != pal.GrassBlend {
				t.Fatalf("%s at %v: blend has duplicates %v", c, tl, blend)
			}
		}
	}
	if len(seen) < 2 {
		t.Fatalf("sampled area produced only %v", seen)
	}
}

func TestRandomTileAtDrawsFromPool(t *testing.T) {
	g := newTestGenerator(t, 5)
	r := rand.New(rand.NewSource(77))
	for x := 0; x < 30; x++ {
		tl := atlas.T(x, -x)
		_, pool := g.Pool(tl)
		got := g.RandomTileAt(tl, r)
		found := false
		for _, id := range pool {
			if id == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("RandomTileAt(%v)=%s not in pool %v", tl, got, pool)
		}
	}
}

func TestNewGeneratorRejectsBadConfig(t *testing.T) {
	cfg := Config{Noise: DefaultNoiseConfig(1)}
	cfg.Noise.Frequency = 0
	if _, err := NewGenerator(cfg, DefaultPalette()); err == nil {
		t.Fatalf("zero frequency accepted")
	}
	pal := DefaultPalette()
	pal.Pools[Snow] = nil
	if _, err := NewGenerator(Config{Noise: DefaultNoiseConfig(1)}, pal); err == nil {
		t.Fatalf("empty pool accepted")
	}
	pal = DefaultPalette()
	pal.GrassBlend = len(pal.Grass) + 1
	if _, err := NewGenerator(Config{Noise: DefaultNoiseConfig(1)}, pal); err == nil {
		t.Fatalf("oversized blend accepted")
	}
}

func TestPathMapKeepShare(t *testing.T) {
	b := atlas.MustBound(atlas.Of(35, 1), atlas.Of(35, -1), atlas.Of(9, 1), atlas.Of(9, -1))
	total := b.Tiles().Size()

	if got := NewPathMap(3, []atlas.CartesianBound{b}, 1000).Len(); got != total {
		t.Fatalf("keep all: %d want %d", got, total)
	}
	if got := NewPathMap(3, []atlas.CartesianBound{b}, 0).Len(); got != 0 {
		t.Fatalf("keep none: %d", got)
	}
	m := NewPathMap(3, []atlas.CartesianBound{b}, DefaultPathKeepPermille)
	if m.Len() == 0 || m.Len() == total {
		t.Fatalf("keep 650: %d of %d", m.Len(), total)
	}
	again := NewPathMap(3, []atlas.CartesianBound{b}, DefaultPathKeepPermille)
	b.EachTile(func(tl atlas.Tile) {
		if m.Has(tl) != again.Has(tl) {
			t.Fatalf("path map not deterministic at %v", tl)
		}
	})
	if m.Has(atlas.T(100, 100)) {
		t.Fatalf("tile outside bounds on path")
	}
	var nilMap *PathMap
	if nilMap.Has(atlas.T(0, 0)) || nilMap.Len() != 0 {
		t.Fatalf("nil path map should be empty")
	}
}
