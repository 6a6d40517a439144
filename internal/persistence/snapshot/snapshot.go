package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// Ext is the file suffix of realm snapshots.
const Ext = ".snap.zst"

type Header struct {
	Version   int       `json:"version"`
	RealmID   string    `json:"realm_id"`
	Moves     uint64    `json:"moves"`
	CreatedAt time.Time `json:"created_at"`
}

// RealmSnapshotV1 captures what is needed to bring a realm back with the same
// terrain and every avatar where it stood.
type RealmSnapshotV1 struct {
	Header Header `json:"header"`

	Seed         int64  `json:"seed"`
	TileSize     int    `json:"tile_size"`
	Viewport     [2]int `json:"viewport"` // tiles, width then height
	EvictDivisor int    `json:"evict_divisor"`

	// Terrain tuning.
	Noise            NoiseV1   `json:"noise"`
	Thresholds       []float64 `json:"thresholds"`
	GrassBlend       int       `json:"grass_blend"`
	PathKeepPermille int       `json:"path_keep_permille"`

	// Operational parameters.
	SnapshotEveryMoves int `json:"snapshot_every_moves,omitempty"`

	StructuresDigest string `json:"structures_digest"`
	RealmDigest      string `json:"realm_digest"`

	Avatars []AvatarV1 `json:"avatars"`
}

type NoiseV1 struct {
	Frequency float64 `json:"frequency"`
	Scale     float64 `json:"scale"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Alpha     float64 `json:"alpha"`
	Beta      float64 `json:"beta"`
	Octaves   int32   `json:"octaves"`
}

type AvatarV1 struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ResumeToken string    `json:"resume_token"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FileName orders snapshots by creation time when sorted lexically.
func FileName(created time.Time) string {
	return created.UTC().Format("20060102T150405.000000000Z") + Ext
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded
// snapshot, all zstd-compressed. The file appears atomically.
func WriteSnapshot(path string, snap RealmSnapshotV1) (err error) {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (RealmSnapshotV1, error) {
	var snap RealmSnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// Latest returns the newest snapshot in dir, or "" if there is none.
func Latest(dir string) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}
