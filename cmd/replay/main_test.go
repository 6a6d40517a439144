package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "tilerealm.dev/internal/persistence/log"
	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/world"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

func testWorld(t *testing.T) *world.World {
	t.Helper()
	return testWorldSeed(t, 5)
}

func testWorldSeed(t *testing.T, seed int64) *world.World {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}
	w, err := world.New(world.WorldConfig{Seed: seed, ViewportWidth: 8, ViewportHeight: 4, EvictDivisor: 4}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

// logSpawnChunks moves one avatar to the realm spawn in w and returns the
// single chunk log file it produced.
func logSpawnChunks(t *testing.T, w *world.World) string {
	t.Helper()
	realmDir := t.TempDir()

	l := persistlog.NewChunkLogger(realmDir, nil)
	sess, err := w.NewSession(world.NewAvatar("a1", "ada", w.Config().TileSize), l)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := sess.Move(world.TileToWorld(sess.World().Catalogs().Realm.Spawn, w.Config().TileSize)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	sess.Close()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := listChunkFiles(filepath.Join(realmDir, "chunks"))
	if err != nil || len(files) != 1 {
		t.Fatalf("listChunkFiles: %v %v", files, err)
	}
	return files[0]
}

func TestReplayFileVerifiesLoggedChunks(t *testing.T) {
	w := testWorld(t)
	path := logSpawnChunks(t, w)

	v := newVerifier(w)
	if err := v.replayFile(path); err != nil {
		t.Fatalf("replayFile: %v", err)
	}
	if v.checked != 9 || len(v.chunks) != 9 || v.countOnly != 0 {
		t.Fatalf("checked=%d distinct=%d countOnly=%d want 9/9/0", v.checked, len(v.chunks), v.countOnly)
	}
}

func TestReplayFileRejectsDifferentSeed(t *testing.T) {
	path := logSpawnChunks(t, testWorldSeed(t, 5))

	v := newVerifier(testWorldSeed(t, 6))
	err := v.replayFile(path)
	if err == nil || !strings.Contains(err.Error(), "mismatch") {
		t.Fatalf("expected mismatch replaying seed 5 log against seed 6, got %v", err)
	}
}

func TestVerifierComparesDigest(t *testing.T) {
	w := testWorld(t)
	cp, err := w.ChunkPlacements(store.ChunkKey{})
	if err != nil {
		t.Fatalf("ChunkPlacements: %v", err)
	}
	ev := persistlog.ChunkEvent{Kind: persistlog.EventLoad, AvatarID: "a1", Placements: len(cp.Placements)}

	cases := []struct {
		name    string
		digest  string
		wantErr bool
	}{
		{"matching digest", world.DigestPlacements(cp.Placements), false},
		{"same count other content", world.DigestPlacements(cp.Placements[1:]), true},
		{"no digest logged", "", false},
	}
	for _, tc := range cases {
		v := newVerifier(w)
		ev.Digest = tc.digest
		err := v.check(ev)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%s: err=%v wantErr=%v", tc.name, err, tc.wantErr)
		}
		if tc.wantErr && !strings.Contains(err.Error(), "digest mismatch") {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if tc.digest == "" && v.countOnly != 1 {
			t.Fatalf("%s: countOnly=%d want 1", tc.name, v.countOnly)
		}
	}
}

func TestVerifierReportsMismatch(t *testing.T) {
	v := newVerifier(testWorld(t))
	err := v.check(persistlog.ChunkEvent{Kind: persistlog.EventLoad, AvatarID: "a1", Chunk: [2]int{0, 0}, Placements: 1})
	if err == nil || !strings.Contains(err.Error(), "placement mismatch") {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, ok := v.chunks[store.ChunkKey{}]; !ok {
		t.Fatalf("chunk summary not cached")
	}
}
