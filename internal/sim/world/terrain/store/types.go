package store

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("chunk coordinate outside pairing range")

// ChunkKey is a chunk coordinate: a tile coordinate floor-divided by the
// viewport size on each axis.
type ChunkKey struct {
	CX int
	CY int
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("%d#%d", k.CX, k.CY)
}

// Handle is anything a chunk keeps alive while loaded.
type Handle interface {
	Release()
}

// HandleFunc adapts a plain function to Handle.
type HandleFunc func()

func (f HandleFunc) Release() { f() }

type Chunk struct {
	key     ChunkKey
	handles []Handle
}

func (c *Chunk) Coordinate() ChunkKey { return c.key }

func (c *Chunk) Add(h Handle) {
	c.handles = append(c.handles, h)
}

func (c *Chunk) Len() int { return len(c.handles) }

// Unload releases every handle in insertion order and empties the chunk.
func (c *Chunk) Unload() {
	for _, h := range c.handles {
		if h != nil {
			h.Release()
		}
	}
	c.handles = nil
}

// TrackerConfig is fixed for the lifetime of a tracker.
type TrackerConfig struct {
	ViewportWidth  int // tiles
	ViewportHeight int // tiles
	EvictDivisor   int
}

const DefaultEvictDivisor = 4

func (c TrackerConfig) Validate() error {
	if c.ViewportWidth < 2 || c.ViewportHeight < 2 {
		return fmt.Errorf("viewport must be at least 2x2 tiles, got %dx%d", c.ViewportWidth, c.ViewportHeight)
	}
	if c.EvictDivisor <= 0 {
		return fmt.Errorf("evict divisor must be positive, got %d", c.EvictDivisor)
	}
	return nil
}

// Tracker records which chunks a single viewer currently has loaded. It is not
// safe for concurrent use.
type Tracker struct {
	cfg TrackerConfig

	// Keyed by the signed Cantor index of the chunk coordinate.
	chunks map[uint64]*Chunk
}

func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if cfg.EvictDivisor == 0 {
		cfg.EvictDivisor = DefaultEvictDivisor
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		cfg:    cfg,
		chunks: map[uint64]*Chunk{},
	}, nil
}

func (t *Tracker) Config() TrackerConfig { return t.cfg }

func (t *Tracker) Len() int { return len(t.chunks) }
