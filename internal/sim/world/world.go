package world

import (
	"errors"
	"fmt"
	"sync/atomic"

	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/world/structure"
	"tilerealm.dev/internal/sim/world/terrain/gen"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

var ErrNoAvatar = errors.New("avatar has no position yet")

// World is the static part of a realm: terrain generator, footpaths and
// structure layout. It is immutable after New and shared by every session;
// only the metric counters change, atomically.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	gen        *gen.Generator
	paths      *gen.PathMap
	structures *structure.Provider

	sessions       atomic.Int64
	moves          atomic.Uint64
	chunksLoaded   atomic.Uint64
	chunksUnloaded atomic.Uint64
	placements     atomic.Uint64
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cats == nil {
		cats = &catalogs.Catalogs{}
	}

	pal := gen.DefaultPalette()
	pal.GrassBlend = *cfg.GrassBlend
	g, err := gen.NewGenerator(gen.Config{Noise: cfg.Noise, Thresholds: cfg.Thresholds}, pal)
	if err != nil {
		return nil, fmt.Errorf("terrain: %w", err)
	}

	provider := cats.Realm.Provider
	if provider == nil {
		provider = structure.NewProvider()
	}
	if err := provider.Validate(); err != nil {
		return nil, err
	}

	return &World{
		cfg:        cfg,
		catalogs:   cats,
		gen:        g,
		paths:      gen.NewPathMap(cfg.Seed, cats.Realm.Paths, *cfg.PathKeepPermille),
		structures: provider,
	}, nil
}

func (w *World) ID() string { return w.cfg.ID }

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Generator() *gen.Generator { return w.gen }

func (w *World) Structures() *structure.Provider { return w.structures }

func (w *World) trackerConfig() store.TrackerConfig {
	return store.TrackerConfig{
		ViewportWidth:  w.cfg.ViewportWidth,
		ViewportHeight: w.cfg.ViewportHeight,
		EvictDivisor:   w.cfg.EvictDivisor,
	}
}
