package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "", "realm id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*realmID) == "" {
			fmt.Fprintln(os.Stderr, "missing -realm or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "realms", *realmID, "index", "realm.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}
	if err := runQuery(db, q, *limit, printJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.HasPrefix(err.Error(), "unknown query") {
			fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-realm REALM|-db PATH] [-limit N] snapshots|avatars|catalogs")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func runQuery(db *sql.DB, q string, limit int, emit func(any)) error {
	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT path,realm_id,moves,seed,avatars,recorded_at FROM snapshots ORDER BY recorded_at DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Path       string `json:"path"`
				RealmID    string `json:"realm_id"`
				Moves      int64  `json:"moves"`
				Seed       int64  `json:"seed"`
				Avatars    int    `json:"avatars"`
				RecordedAt string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Path, &r.RealmID, &r.Moves, &r.Seed, &r.Avatars, &r.RecordedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "avatars":
		rows, err := db.Query(`SELECT id,name,x,y,updated_at FROM avatars ORDER BY updated_at DESC LIMIT ?`, limit)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID        string  `json:"id"`
				Name      string  `json:"name"`
				X         float64 `json:"x"`
				Y         float64 `json:"y"`
				UpdatedAt string  `json:"updated_at"`
			}
			if err := rows.Scan(&r.ID, &r.Name, &r.X, &r.Y, &r.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	case "catalogs":
		rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Name      string `json:"name"`
				Digest    string `json:"digest"`
				UpdatedAt string `json:"updated_at"`
			}
			if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			emit(r)
		}
		return rows.Err()

	default:
		return fmt.Errorf("unknown query: %s", q)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
