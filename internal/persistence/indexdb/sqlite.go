package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/catalogs"
	"tilerealm.dev/internal/sim/tuning"
	"tilerealm.dev/internal/sim/world"
)

// SQLiteIndex is the avatar position store plus a secondary index of
// snapshots and catalogs. Avatar writes are synchronous; snapshot rows go
// through a queue drained by a writer goroutine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSnapshotTotal atomic.Uint64
}

var _ world.AvatarStore = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqSnapshot reqKind = iota + 1
)

type req struct {
	kind     reqKind
	snapshot snapshotRow
}

type snapshotRow struct {
	Path       string
	RealmID    string
	Moves      uint64
	Seed       int64
	Avatars    int
	RecordedAt string
}

// Stats is a point-in-time view of the write queue.
type Stats struct {
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 1024),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS avatars (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			resume_token TEXT NOT NULL UNIQUE,
			x REAL NOT NULL,
			y REAL NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			path TEXT PRIMARY KEY,
			realm_id TEXT NOT NULL,
			moves INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			avatars INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_recorded ON snapshots(recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) UpsertAvatar(ctx context.Context, r world.AvatarRecord) error {
	if r.ID == "" || r.ResumeToken == "" {
		return fmt.Errorf("avatar id and resume token are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO avatars(id,name,resume_token,x,y,updated_at) VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, resume_token=excluded.resume_token,
			x=excluded.x, y=excluded.y, updated_at=excluded.updated_at`,
		r.ID, r.Name, r.ResumeToken, r.X, r.Y, r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteIndex) Avatar(ctx context.Context, id string) (world.AvatarRecord, bool, error) {
	return s.queryOne(ctx, `SELECT id,name,resume_token,x,y,updated_at FROM avatars WHERE id=?`, id)
}

func (s *SQLiteIndex) ByResumeToken(ctx context.Context, token string) (world.AvatarRecord, bool, error) {
	if token == "" {
		return world.AvatarRecord{}, false, nil
	}
	return s.queryOne(ctx, `SELECT id,name,resume_token,x,y,updated_at FROM avatars WHERE resume_token=?`, token)
}

func (s *SQLiteIndex) Avatars(ctx context.Context) ([]world.AvatarRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,resume_token,x,y,updated_at FROM avatars ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []world.AvatarRecord
	for rows.Next() {
		r, err := scanAvatar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) queryOne(ctx context.Context, q string, arg any) (world.AvatarRecord, bool, error) {
	r, err := scanAvatar(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return world.AvatarRecord{}, false, nil
	}
	if err != nil {
		return world.AvatarRecord{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAvatar(sc scanner) (world.AvatarRecord, error) {
	var r world.AvatarRecord
	var updated string
	if err := sc.Scan(&r.ID, &r.Name, &r.ResumeToken, &r.X, &r.Y, &updated); err != nil {
		return r, err
	}
	t, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return r, fmt.Errorf("avatar %s updated_at: %w", r.ID, err)
	}
	r.UpdatedAt = t
	return r, nil
}

// RecordSnapshot queues a row for a snapshot file. It never blocks; rows are
// dropped when the writer falls behind.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.RealmSnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Path:       path,
		RealmID:    snap.Header.RealmID,
		Moves:      snap.Header.Moves,
		Seed:       snap.Seed,
		Avatars:    len(snap.Avatars),
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshotTotal.Add(1)
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropSnapshotTotal: s.dropSnapshotTotal.Load(),
	}
}

// UpsertCatalogs stores the catalogs and tuning the server runs with.
func (s *SQLiteIndex) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	{
		defs := make([]catalogs.StructureDef, 0, len(cats.Structures.Defs))
		for _, d := range cats.Structures.Defs {
			defs = append(defs, d)
		}
		sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
		if b, _ := json.Marshal(defs); len(b) > 0 {
			rows = append(rows, kv{name: "structures", digest: cats.Structures.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cats.Realm.Layout); len(b) > 0 {
		rows = append(rows, kv{name: "realm", digest: cats.Realm.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the stored digest for name, or "" if absent.
func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}

// SnapshotCount is the number of indexed snapshot files.
func (s *SQLiteIndex) SnapshotCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(path,realm_id,moves,seed,avatars,recorded_at) VALUES(?,?,?,?,?,?)`)
	defer func() {
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	for r := range s.ch {
		switch r.kind {
		case reqSnapshot:
			if insertSnapshot == nil {
				continue
			}
			sn := r.snapshot
			_, _ = insertSnapshot.Exec(sn.Path, sn.RealmID, int64(sn.Moves), sn.Seed, sn.Avatars, sn.RecordedAt)
		}
	}
}
