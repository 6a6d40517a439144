package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tilerealm.dev/internal/persistence/indexdb"
	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world"
)

// runtimeIndex is the sqlite index seen from main. When it is nil the server
// falls back to an in-memory avatar store.
type runtimeIndex interface {
	world.AvatarStore
	Close() error
	UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.RealmSnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(realmDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TR_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled", "memory":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(realmDir, "index", "realm.sqlite")
		idx, err := indexdb.OpenSQLite(dbPath)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported TR_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
