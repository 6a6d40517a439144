package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world"
)

func openTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "index", "realm.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteIndex_AvatarRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	if _, ok, err := s.Avatar(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing avatar ok=%v err=%v", ok, err)
	}

	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	a := world.AvatarRecord{ID: "a1", Name: "alice", ResumeToken: "resume_a", X: 984, Y: 24, UpdatedAt: at}
	b := world.AvatarRecord{ID: "a0", Name: "bob", ResumeToken: "resume_b", X: -120.5, Y: 216, UpdatedAt: at}
	for _, r := range []world.AvatarRecord{a, b} {
		if err := s.UpsertAvatar(ctx, r); err != nil {
			t.Fatalf("UpsertAvatar: %v", err)
		}
	}

	a.X, a.Y = 1176, 72
	a.UpdatedAt = at.Add(time.Minute)
	if err := s.UpsertAvatar(ctx, a); err != nil {
		t.Fatalf("UpsertAvatar update: %v", err)
	}

	got, ok, err := s.Avatar(ctx, "a1")
	if err != nil || !ok {
		t.Fatalf("Avatar: ok=%v err=%v", ok, err)
	}
	if got.X != 1176 || got.Y != 72 || !got.UpdatedAt.Equal(a.UpdatedAt) {
		t.Fatalf("Avatar=%+v", got)
	}

	byTok, ok, err := s.ByResumeToken(ctx, "resume_b")
	if err != nil || !ok || byTok.ID != "a0" || byTok.X != -120.5 {
		t.Fatalf("ByResumeToken=%+v ok=%v err=%v", byTok, ok, err)
	}
	if _, ok, _ := s.ByResumeToken(ctx, ""); ok {
		t.Fatalf("empty token matched")
	}

	all, err := s.Avatars(ctx)
	if err != nil {
		t.Fatalf("Avatars: %v", err)
	}
	if len(all) != 2 || all[0].ID != "a0" || all[1].ID != "a1" {
		t.Fatalf("Avatars=%+v", all)
	}

	if err := s.UpsertAvatar(ctx, world.AvatarRecord{ID: "x"}); err == nil {
		t.Fatalf("expected error for avatar without resume token")
	}
}

func TestSQLiteIndex_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "realm.sqlite")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.UpsertAvatar(ctx, world.AvatarRecord{ID: "a1", Name: "alice", ResumeToken: "r1", X: 1, Y: 2, UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("UpsertAvatar: %v", err)
	}
	s.RecordSnapshot("/data/snapshots/x.snap.zst", snapshot.RealmSnapshotV1{Header: snapshot.Header{RealmID: "realm"}, Seed: 9})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, ok, err := s2.ByResumeToken(ctx, "r1"); !ok || err != nil {
		t.Fatalf("avatar lost on reopen ok=%v err=%v", ok, err)
	}
	if n, err := s2.SnapshotCount(ctx); err != nil || n != 1 {
		t.Fatalf("SnapshotCount=%d err=%v", n, err)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.RecordSnapshot("/tmp/1.snap.zst", snapshot.RealmSnapshotV1{})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.RealmSnapshotV1{})

	st := s.Stats()
	if st.DropSnapshotTotal != 1 {
		t.Fatalf("DropSnapshotTotal=%d want=1", st.DropSnapshotTotal)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	if err := s.UpsertCatalogs(ctx, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	d, err := s.CatalogDigest(ctx, "structures")
	if err != nil || d != cats.Structures.Digest {
		t.Fatalf("structures digest=%q err=%v", d, err)
	}
	if d, _ := s.CatalogDigest(ctx, "tuning"); d == "" {
		t.Fatalf("tuning digest missing")
	}
	if d, _ := s.CatalogDigest(ctx, "nope"); d != "" {
		t.Fatalf("unknown catalog digest=%q", d)
	}
}
