package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	persistlog "tilerealm.dev/internal/persistence/log"
	"tilerealm.dev/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "info":
			infoCmd(os.Args[2:])
			return
		case "chunks":
			chunksCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "", "realm id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "realms")
	if *realmID != "" {
		base = filepath.Join(base, *realmID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "realm", "realm id")
	snapPath := fs.String("snapshot", "", "snapshot path (optional; defaults to latest)")
	avatars := fs.Bool("avatars", false, "also print one line per avatar")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		var err error
		path, err = snapshot.Latest(filepath.Join(*dataDir, "realms", *realmID, "snapshots"))
		if err != nil {
			fmt.Fprintln(os.Stderr, "latest snapshot:", err)
			os.Exit(1)
		}
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run server until it writes one")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(struct {
		Path             string `json:"path"`
		RealmID          string `json:"realm_id"`
		Moves            uint64 `json:"moves"`
		CreatedAt        string `json:"created_at"`
		Seed             int64  `json:"seed"`
		TileSize         int    `json:"tile_size"`
		Viewport         [2]int `json:"viewport"`
		EvictDivisor     int    `json:"evict_divisor"`
		StructuresDigest string `json:"structures_digest"`
		RealmDigest      string `json:"realm_digest"`
		Avatars          int    `json:"avatars"`
	}{
		Path:             path,
		RealmID:          snap.Header.RealmID,
		Moves:            snap.Header.Moves,
		CreatedAt:        snap.Header.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Seed:             snap.Seed,
		TileSize:         snap.TileSize,
		Viewport:         snap.Viewport,
		EvictDivisor:     snap.EvictDivisor,
		StructuresDigest: snap.StructuresDigest,
		RealmDigest:      snap.RealmDigest,
		Avatars:          len(snap.Avatars),
	})
	if *avatars {
		for _, a := range snap.Avatars {
			printJSON(a)
		}
	}
}

func chunksCmd(args []string) {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	realmID := fs.String("realm", "realm", "realm id")
	avatarID := fs.String("avatar", "", "avatar id filter (optional)")
	chunk := fs.String("chunk", "", "chunk key filter: cx,cy (optional)")
	_ = fs.Parse(args)

	var f chunkFilter
	f.AvatarID = strings.TrimSpace(*avatarID)
	if strings.TrimSpace(*chunk) != "" {
		k, err := parseChunkKey(*chunk)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad -chunk:", err)
			os.Exit(2)
		}
		f.Chunk = &k
	}

	evs, err := readChunkEvents(filepath.Join(*dataDir, "realms", *realmID), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read chunk log:", err)
		os.Exit(1)
	}
	for _, ev := range evs {
		printJSON(ev)
	}
}

type chunkFilter struct {
	AvatarID string
	Chunk    *[2]int
}

func (f chunkFilter) match(ev persistlog.ChunkEvent) bool {
	if f.AvatarID != "" && ev.AvatarID != f.AvatarID {
		return false
	}
	if f.Chunk != nil && ev.Chunk != *f.Chunk {
		return false
	}
	return true
}

// readChunkEvents returns matching chunk log lines in file (hour) order.
func readChunkEvents(realmDir string, f chunkFilter) ([]persistlog.ChunkEvent, error) {
	dir := filepath.Join(realmDir, "chunks")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "chunks-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []persistlog.ChunkEvent
	for _, name := range names {
		path := filepath.Join(dir, name)
		evs, err := readChunkFile(path, f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, evs...)
	}
	return out, nil
}

func readChunkFile(path string, f chunkFilter) ([]persistlog.ChunkEvent, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	dec, err := zstd.NewReader(fh)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []persistlog.ChunkEvent
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var ev persistlog.ChunkEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}
		if f.match(ev) {
			out = append(out, ev)
		}
	}
	return out, sc.Err()
}

func parseChunkKey(s string) ([2]int, error) {
	var k [2]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return k, fmt.Errorf("expected cx,cy")
	}
	for i := 0; i < 2; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return k, err
		}
		k[i] = n
	}
	return k, nil
}
