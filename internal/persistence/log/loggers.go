package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"tilerealm.dev/internal/sim/world/terrain/store"
)

// JSONLZstdWriter appends one JSON value per line to an hourly file
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

const (
	EventLoad   = "LOAD"
	EventUnload = "UNLOAD"
)

// ChunkEvent is one line of the chunk log.
type ChunkEvent struct {
	Time       time.Time `json:"ts"`
	Kind       string    `json:"kind"`
	AvatarID   string    `json:"avatar_id"`
	Chunk      [2]int    `json:"chunk"`
	Placements int       `json:"placements,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// ChunkLogger records every chunk a session loads or evicts. It satisfies
// world.ChunkObserver and is safe for concurrent sessions.
type ChunkLogger struct {
	w      *JSONLZstdWriter
	logger *stdlog.Logger

	written atomic.Uint64
	failed  atomic.Uint64
}

func NewChunkLogger(realmDir string, logger *stdlog.Logger) *ChunkLogger {
	return &ChunkLogger{
		w:      NewJSONLZstdWriter(filepath.Join(realmDir, "chunks"), "chunks"),
		logger: logger,
	}
}

func (l *ChunkLogger) ChunkLoaded(avatarID string, k store.ChunkKey, placements int, digest string) {
	l.write(ChunkEvent{Kind: EventLoad, AvatarID: avatarID, Chunk: [2]int{k.CX, k.CY}, Placements: placements, Digest: digest})
}

func (l *ChunkLogger) ChunkUnloaded(avatarID string, k store.ChunkKey) {
	l.write(ChunkEvent{Kind: EventUnload, AvatarID: avatarID, Chunk: [2]int{k.CX, k.CY}})
}

func (l *ChunkLogger) write(ev ChunkEvent) {
	ev.Time = l.w.now().UTC()
	if err := l.w.Write(ev); err != nil {
		// Only the first failure is logged; the rest are counted.
		if l.failed.Add(1) == 1 && l.logger != nil {
			l.logger.Printf("chunk log: %v", err)
		}
		return
	}
	l.written.Add(1)
}

// Stats reports events written and dropped.
func (l *ChunkLogger) Stats() (written, failed uint64) {
	return l.written.Load(), l.failed.Load()
}

func (l *ChunkLogger) Close() error { return l.w.Close() }
