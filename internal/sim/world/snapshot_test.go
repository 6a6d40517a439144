package world

import (
	"context"
	"testing"
	"time"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

func TestSnapshotRestoresTerrainAndAvatars(t *testing.T) {
	ctx := context.Background()
	cfg := smallConfig()
	cfg.Seed = 99
	w := newTestWorld(t, cfg)

	avatars := NewMemoryAvatarStore()
	rec := AvatarRecord{ID: "a1", Name: "ada", ResumeToken: "resume_a1", X: 120, Y: -24, UpdatedAt: time.Unix(1700000000, 0).UTC()}
	if err := avatars.UpsertAvatar(ctx, rec); err != nil {
		t.Fatalf("UpsertAvatar: %v", err)
	}

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	snap, err := w.ExportSnapshot(ctx, avatars, now)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if snap.Header.RealmID != "realm" || !snap.Header.CreatedAt.Equal(now) || len(snap.Avatars) != 1 {
		t.Fatalf("unexpected snapshot header=%+v avatars=%d", snap.Header, len(snap.Avatars))
	}
	if snap.StructuresDigest != w.Catalogs().Structures.Digest {
		t.Fatalf("structures digest not captured")
	}

	restoredCfg := ConfigFromSnapshot(WorldConfig{ID: "realm", Seed: 1}, snap)
	if restoredCfg.Seed != 99 || restoredCfg.Noise.Seed != 99 {
		t.Fatalf("seed not restored: %d/%d", restoredCfg.Seed, restoredCfg.Noise.Seed)
	}
	if restoredCfg.ViewportWidth != 8 || restoredCfg.ViewportHeight != 4 || restoredCfg.EvictDivisor != 4 {
		t.Fatalf("viewport not restored: %+v", restoredCfg)
	}
	restored := newTestWorld(t, restoredCfg)
	for _, x := range []int{-40, 0, 17, 333} {
		tl := atlas.T(x, x/3)
		if a, b := w.Generator().TileAt(tl), restored.Generator().TileAt(tl); a != b {
			t.Fatalf("terrain at %s differs after restore: %s vs %s", tl, a, b)
		}
	}

	fresh := NewMemoryAvatarStore()
	n, err := ImportAvatars(ctx, fresh, snap)
	if err != nil || n != 1 {
		t.Fatalf("ImportAvatars: n=%d err=%v", n, err)
	}
	got, ok, err := fresh.ByResumeToken(ctx, "resume_a1")
	if err != nil || !ok || got.X != 120 || got.Y != -24 {
		t.Fatalf("imported avatar: %+v ok=%v err=%v", got, ok, err)
	}
	if n, err := ImportAvatars(ctx, fresh, snap); err != nil || n != 0 {
		t.Fatalf("second import: n=%d err=%v", n, err)
	}
}

func TestChunkPlacementsMatchesSessionLoad(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	s, err := w.NewSession(NewAvatar("a", "a", 48), nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	d, err := s.Move(TileToWorld(atlas.T(1, 1), 48))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if len(d.Loaded) == 0 || d.Loaded[0].Chunk != (store.ChunkKey{}) {
		t.Fatalf("expected origin chunk first, got %+v", d.Loaded)
	}
	want := d.Loaded[0].Placements

	got, err := w.ChunkPlacements(store.ChunkKey{})
	if err != nil {
		t.Fatalf("ChunkPlacements: %v", err)
	}
	if len(got.Placements) != len(want) {
		t.Fatalf("placements=%d want %d", len(got.Placements), len(want))
	}
	for i := range want {
		if got.Placements[i] != want[i] {
			t.Fatalf("placement %d: %+v want %+v", i, got.Placements[i], want[i])
		}
	}
}
