package world

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/structure"
	"tilerealm.dev/internal/sim/world/terrain/gen"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	w, err := New(cfg, cats)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func smallConfig() WorldConfig {
	return WorldConfig{Seed: 42, TileSize: 48, ViewportWidth: 8, ViewportHeight: 4, EvictDivisor: 4}
}

type recordingObserver struct {
	loaded   []store.ChunkKey
	unloaded []store.ChunkKey
	digests  map[store.ChunkKey]string
}

func (r *recordingObserver) ChunkLoaded(_ string, k store.ChunkKey, _ int, digest string) {
	r.loaded = append(r.loaded, k)
	if r.digests == nil {
		r.digests = map[store.ChunkKey]string{}
	}
	r.digests[k] = digest
}

func (r *recordingObserver) ChunkUnloaded(_ string, k store.ChunkKey) {
	r.unloaded = append(r.unloaded, k)
}

func tilePixel(x, y int) atlas.Coordinate { return TileToWorld(atlas.T(x, y), 48) }

func TestNewRejectsViewportBelowDivisor(t *testing.T) {
	cfg := smallConfig()
	cfg.ViewportHeight = 3
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("expected error for viewport smaller than divisor")
	}
}

func TestSessionFirstMoveLoadsNineChunks(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	obs := &recordingObserver{}
	s, err := w.NewSession(NewAvatar("a1", "alice", 48), obs)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	if _, err := s.CurrentChunk(); !errors.Is(err, ErrNoAvatar) {
		t.Fatalf("CurrentChunk before move err=%v", err)
	}
	if _, err := s.Viewport(); !errors.Is(err, ErrNoAvatar) {
		t.Fatalf("Viewport before move err=%v", err)
	}

	d, err := s.Move(tilePixel(0, 0))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(d.Loaded) != 9 || len(d.Unloaded) != 0 {
		t.Fatalf("loaded=%d unloaded=%d", len(d.Loaded), len(d.Unloaded))
	}
	if d.Loaded[0].Chunk != (store.ChunkKey{}) {
		t.Fatalf("current chunk not loaded first: %v", d.Loaded[0].Chunk)
	}
	for _, cp := range d.Loaded {
		if len(cp.Placements) < 32 {
			t.Fatalf("chunk %v has %d placements", cp.Chunk, len(cp.Placements))
		}
		bound := s.tracker.Bound(cp.Chunk)
		for _, p := range cp.Placements {
			if !bound.Contains(p.Tile) {
				t.Fatalf("placement %v outside chunk %v", p.Tile, cp.Chunk)
			}
		}
	}
	if got := s.LoadedTiles(); got != 9*32 {
		t.Fatalf("loaded tiles=%d want %d", got, 9*32)
	}
	if len(obs.loaded) != 9 {
		t.Fatalf("observer loaded=%d", len(obs.loaded))
	}

	d, err = s.Move(atlas.Of(100, 100))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !d.Empty() {
		t.Fatalf("move inside chunk produced %+v", d)
	}
}

func TestSessionMoveEvictsDistantChunks(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	obs := &recordingObserver{}
	s, err := w.NewSession(NewAvatar("a1", "alice", 48), obs)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := s.Move(tilePixel(0, 0)); err != nil {
		t.Fatalf("Move: %v", err)
	}

	// Two chunks down: rows -1 and 0 sit 2 chunks away, beyond 4/4.
	d, err := s.Move(tilePixel(0, 8))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	wantUnloaded := []store.ChunkKey{{CX: -1, CY: -1}, {CX: -1, CY: 0}, {CX: 0, CY: -1}, {CX: 0, CY: 0}, {CX: 1, CY: -1}, {CX: 1, CY: 0}}
	if !reflect.DeepEqual(d.Unloaded, wantUnloaded) {
		t.Fatalf("unloaded=%v want %v", d.Unloaded, wantUnloaded)
	}
	if len(d.Loaded) != 6 {
		t.Fatalf("loaded=%d want 6", len(d.Loaded))
	}
	if got := len(s.LoadedChunks()); got != 9 {
		t.Fatalf("tracked chunks=%d", got)
	}
	if got := s.LoadedTiles(); got != 9*32 {
		t.Fatalf("loaded tiles=%d after eviction", got)
	}
	if cur, _ := s.CurrentChunk(); cur != (store.ChunkKey{CX: 0, CY: 2}) {
		t.Fatalf("current chunk=%v", cur)
	}

	// Far jump drops everything.
	d, err = s.Move(tilePixel(80, 8))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(d.Unloaded) != 9 || len(d.Loaded) != 9 {
		t.Fatalf("far jump loaded=%d unloaded=%d", len(d.Loaded), len(d.Unloaded))
	}
	if len(obs.loaded) != 24 || len(obs.unloaded) != 15 {
		t.Fatalf("observer loaded=%d unloaded=%d", len(obs.loaded), len(obs.unloaded))
	}

	m := w.Metrics()
	if m.Sessions != 1 || m.Moves != 3 || m.ChunksLoaded != 24 || m.ChunksUnloaded != 15 {
		t.Fatalf("metrics=%+v", m)
	}

	keys := s.Close()
	if len(keys) != 9 || s.LoadedTiles() != 0 {
		t.Fatalf("Close keys=%d tiles=%d", len(keys), s.LoadedTiles())
	}
	if m := w.Metrics(); m.Sessions != 0 {
		t.Fatalf("sessions after close=%d", m.Sessions)
	}
	if _, err := s.Move(tilePixel(0, 0)); err == nil {
		t.Fatalf("move on closed session succeeded")
	}
}

func TestSessionRejectsInvalidPositions(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	s, err := w.NewSession(NewAvatar("a1", "alice", 48), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	for _, pos := range []atlas.Coordinate{
		{X: math.NaN(), Y: 0},
		{X: 0, Y: math.Inf(-1)},
		{X: 1e15, Y: 0},
	} {
		if _, err := s.Move(pos); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("Move(%v) err=%v", pos, err)
		}
	}
	if _, err := s.Move(atlas.Of(1e15, 0)); !errors.Is(err, store.ErrOutOfRange) {
		t.Fatalf("out of range err=%v", err)
	}
	if s.Avatar().Placed() || len(s.LoadedChunks()) != 0 {
		t.Fatalf("rejected move changed the session")
	}
}

func TestLoadTileSetSkipsLoadedTiles(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	s, err := w.NewSession(NewAvatar("a1", "alice", 48), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	a := atlas.MustBound(atlas.Of(3, 3), atlas.Of(3, 0), atlas.Of(0, 3), atlas.Of(0, 0))
	b := atlas.MustBound(atlas.Of(5, 3), atlas.Of(5, 0), atlas.Of(2, 3), atlas.Of(2, 0))

	first, err := s.LoadTileSet(a.Tiles())
	if err != nil {
		t.Fatalf("LoadTileSet: %v", err)
	}
	if len(first) < 16 || s.LoadedTiles() != 16 {
		t.Fatalf("first load placements=%d tiles=%d", len(first), s.LoadedTiles())
	}
	if first[0].Tile != atlas.T(0, 3) {
		t.Fatalf("first placement %v, want top-left 0#3", first[0].Tile)
	}

	if _, err := s.LoadTileSet(b.Tiles()); err != nil {
		t.Fatalf("LoadTileSet: %v", err)
	}
	if got := s.LoadedTiles(); got != 24 {
		t.Fatalf("union tiles=%d want 24", got)
	}
	if n := s.UnloadTileSet(atlas.Intersection(a, b)); n != 8 {
		t.Fatalf("unloaded=%d want 8", n)
	}
	if got := s.LoadedTiles(); got != 16 {
		t.Fatalf("tiles after unload=%d", got)
	}
}

func TestPlacementsAtStructureLayers(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	cases := []struct {
		tile  atlas.Tile
		image atlas.TileID
		solid bool
		kind  structure.Kind
	}{
		{atlas.T(14, -7), "RUBYTOWN_67", true, structure.Door},
		{atlas.T(11, -7), "RUBYTOWN_64", false, structure.IgnorePhysics},
		{atlas.T(11, -11), "RUBYTOWN_0", true, ""},
		{atlas.T(-7, 1), "BRIDGE_TILE_48", false, structure.IgnorePhysics},
		{atlas.T(-7, 2), "BRIDGE_TILE_64", true, ""},
	}
	for _, c := range cases {
		ps, err := w.PlacementsAt(c.tile)
		if err != nil {
			t.Fatalf("PlacementsAt(%v): %v", c.tile, err)
		}
		if len(ps) != 2 || ps[0].Layer != LayerBase || ps[1].Layer != LayerBuilding {
			t.Fatalf("PlacementsAt(%v) layers=%+v", c.tile, ps)
		}
		top := ps[1]
		if top.Image != c.image || top.Solid != c.solid || top.Annotation != c.kind {
			t.Fatalf("PlacementsAt(%v)=%+v want %s solid=%v kind=%q", c.tile, top, c.image, c.solid, c.kind)
		}
	}

	// Empty cell past the end of a short row: terrain only.
	ps, err := w.PlacementsAt(atlas.T(18, -11))
	if err != nil || len(ps) != 1 {
		t.Fatalf("short row placements=%+v err=%v", ps, err)
	}
}

func TestPlacementsAtTerrainAndPixels(t *testing.T) {
	cfg := smallConfig()
	cfg.PathKeepPermille = intOpt(1000)
	w := newTestWorld(t, cfg)

	ps, err := w.PlacementsAt(atlas.T(20, 0))
	if err != nil {
		t.Fatalf("PlacementsAt: %v", err)
	}
	if ps[0].Image != gen.PathTile {
		t.Fatalf("footpath tile image=%s", ps[0].Image)
	}
	if ps[0].PixelX != 20*48+24 || ps[0].PixelY != 24 {
		t.Fatalf("pixel=(%v,%v)", ps[0].PixelX, ps[0].PixelY)
	}

	far := atlas.T(-500, 700)
	ps, err = w.PlacementsAt(far)
	if err != nil {
		t.Fatalf("PlacementsAt: %v", err)
	}
	if len(ps) != 1 || ps[0].Solid {
		t.Fatalf("open terrain=%+v", ps)
	}
	if ps[0].Image != w.Generator().TileAt(far) || ps[0].Category != w.Generator().Category(far) {
		t.Fatalf("base layer disagrees with generator: %+v", ps[0])
	}
	if ps[0].PixelX != -500*48+24 || ps[0].PixelY != 700*48+24 {
		t.Fatalf("pixel=(%v,%v)", ps[0].PixelX, ps[0].PixelY)
	}
}

func TestObserverDigestMatchesChunkPlacements(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	obs := &recordingObserver{}
	s, err := w.NewSession(NewAvatar("a1", "alice", 48), obs)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	d, err := s.Move(tilePixel(0, 0))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	for _, cp := range d.Loaded {
		again, err := w.ChunkPlacements(cp.Chunk)
		if err != nil {
			t.Fatalf("ChunkPlacements(%v): %v", cp.Chunk, err)
		}
		want := DigestPlacements(again.Placements)
		if obs.digests[cp.Chunk] != want || DigestPlacements(cp.Placements) != want {
			t.Fatalf("chunk %v digest=%s want %s", cp.Chunk, obs.digests[cp.Chunk], want)
		}
	}

	cfg := smallConfig()
	cfg.Seed++
	other := newTestWorld(t, cfg)
	differs := false
	for _, cp := range d.Loaded {
		again, err := other.ChunkPlacements(cp.Chunk)
		if err != nil {
			t.Fatalf("ChunkPlacements(%v): %v", cp.Chunk, err)
		}
		if DigestPlacements(again.Placements) != obs.digests[cp.Chunk] {
			differs = true
		}
	}
	if !differs {
		t.Fatalf("seed %d produced the same digests as seed %d", cfg.Seed, smallConfig().Seed)
	}
}

func TestDigestPlacementsSensitiveToImage(t *testing.T) {
	ps := []Placement{{Tile: atlas.T(1, 2), Image: "grass_0", Layer: LayerBase}}
	base := DigestPlacements(ps)
	if base != DigestPlacements([]Placement{ps[0]}) {
		t.Fatalf("digest not deterministic")
	}
	changed := []Placement{ps[0]}
	changed[0].Image = "grass_1"
	if DigestPlacements(changed) == base {
		t.Fatalf("image change kept digest %s", base)
	}
	if DigestPlacements(nil) == base {
		t.Fatalf("empty chunk shares digest with non-empty")
	}
}
