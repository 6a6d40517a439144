package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/zyedidia/generic/mapset"

	"tilerealm.dev/internal/sim/world/atlas"
	"tilerealm.dev/internal/sim/world/terrain/store"
)

var ErrInvalidPosition = errors.New("invalid position")

// ChunkObserver hears about every chunk a session loads or evicts. Calls are
// made synchronously from Move. digest is DigestPlacements of the loaded
// placements.
type ChunkObserver interface {
	ChunkLoaded(avatarID string, k store.ChunkKey, placements int, digest string)
	ChunkUnloaded(avatarID string, k store.ChunkKey)
}

// Delta is what one move changed on the client: chunks to draw and chunks to
// drop.
type Delta struct {
	Loaded   []ChunkPlacements
	Unloaded []store.ChunkKey
}

func (d Delta) Empty() bool { return len(d.Loaded) == 0 && len(d.Unloaded) == 0 }

// Session follows one avatar through the realm. It is not safe for concurrent
// use; the transport drives each session from a single goroutine.
type Session struct {
	world    *World
	avatar   *Avatar
	tracker  *store.Tracker
	observer ChunkObserver

	tiles  mapset.Set[atlas.Tile]
	closed bool
}

func (w *World) NewSession(a *Avatar, obs ChunkObserver) (*Session, error) {
	if a == nil {
		return nil, fmt.Errorf("nil avatar")
	}
	tr, err := store.NewTracker(w.trackerConfig())
	if err != nil {
		return nil, err
	}
	w.sessions.Add(1)
	return &Session{
		world:    w,
		avatar:   a,
		tracker:  tr,
		observer: obs,
		tiles:    mapset.New[atlas.Tile](),
	}, nil
}

func (s *Session) Avatar() *Avatar { return s.avatar }

func (s *Session) World() *World { return s.world }

// LoadedChunks lists the tracked chunks in key order.
func (s *Session) LoadedChunks() []store.ChunkKey { return s.tracker.LoadedChunkKeys() }

func (s *Session) LoadedTiles() int { return s.tiles.Size() }

// ChunkBound is the inclusive tile rectangle of chunk k.
func (s *Session) ChunkBound(k store.ChunkKey) atlas.CartesianBound { return s.tracker.Bound(k) }

// CurrentChunk is the chunk holding the avatar's tile.
func (s *Session) CurrentChunk() (store.ChunkKey, error) {
	t, ok := s.avatar.Tile()
	if !ok {
		return store.ChunkKey{}, ErrNoAvatar
	}
	return s.tracker.ChunkOf(t), nil
}

// Viewport is the configured viewport centred on the avatar, in tiles.
func (s *Session) Viewport() (atlas.CartesianBound, error) {
	cfg := s.world.cfg
	return s.avatar.ViewportBound(float64(cfg.ViewportHeight), float64(cfg.ViewportWidth))
}

// Move places the avatar at pos (pixels), evicts chunks that drifted out of
// range and loads the current chunk plus its eight neighbours if missing.
// A rejected position leaves the session untouched.
func (s *Session) Move(pos atlas.Coordinate) (Delta, error) {
	if s.closed {
		return Delta{}, fmt.Errorf("session closed")
	}
	cur, err := s.checkPosition(pos)
	if err != nil {
		return Delta{}, err
	}
	s.avatar.SetWorld(pos)
	s.world.moves.Add(1)

	var d Delta
	d.Unloaded = s.tracker.Update(cur)
	for _, k := range d.Unloaded {
		s.world.chunksUnloaded.Add(1)
		if s.observer != nil {
			s.observer.ChunkUnloaded(s.avatar.ID, k)
		}
	}

	for _, k := range append([]store.ChunkKey{cur}, store.Adjacent(cur)...) {
		if s.tracker.IsLoaded(k) {
			continue
		}
		cp, err := s.loadChunk(k)
		if err != nil {
			return d, err
		}
		d.Loaded = append(d.Loaded, cp)
	}
	return d, nil
}

func (s *Session) checkPosition(pos atlas.Coordinate) (store.ChunkKey, error) {
	ts := float64(s.world.cfg.TileSize)
	for _, v := range []float64{pos.X, pos.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v/ts) > 1<<52 {
			return store.ChunkKey{}, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
		}
	}
	cur := s.tracker.ChunkOf(WorldToTile(pos, s.world.cfg.TileSize))
	for _, k := range append([]store.ChunkKey{cur}, store.Adjacent(cur)...) {
		if _, err := store.ToIndex(k); err != nil {
			return store.ChunkKey{}, fmt.Errorf("%w: %w", ErrInvalidPosition, err)
		}
	}
	return cur, nil
}

func (s *Session) loadChunk(k store.ChunkKey) (ChunkPlacements, error) {
	tiles := s.tracker.Bound(k).Tiles()
	placements, err := s.LoadTileSet(tiles)
	if err != nil {
		return ChunkPlacements{}, fmt.Errorf("chunk %s: %w", k, err)
	}
	ch, err := s.tracker.CreateChunk(k)
	if err != nil {
		s.UnloadTileSet(tiles)
		return ChunkPlacements{}, err
	}
	ch.Add(store.HandleFunc(func() { s.UnloadTileSet(tiles) }))

	s.world.chunksLoaded.Add(1)
	if s.observer != nil {
		s.observer.ChunkLoaded(s.avatar.ID, k, len(placements), DigestPlacements(placements))
	}
	return ChunkPlacements{Chunk: k, Placements: placements}, nil
}

// LoadTileSet resolves placements for every tile in set that is not loaded
// yet and marks them loaded. Tiles come back top row first, left to right.
func (s *Session) LoadTileSet(set mapset.Set[atlas.Tile]) ([]Placement, error) {
	var out []Placement
	var added []atlas.Tile
	for _, t := range atlas.SortedTiles(set) {
		if s.tiles.Has(t) {
			continue
		}
		ps, err := s.world.PlacementsAt(t)
		if err != nil {
			for _, a := range added {
				s.tiles.Remove(a)
			}
			return nil, err
		}
		s.tiles.Put(t)
		added = append(added, t)
		out = append(out, ps...)
	}
	s.world.placements.Add(uint64(len(out)))
	return out, nil
}

// UnloadTileSet forgets every tile in set and returns how many were loaded.
func (s *Session) UnloadTileSet(set mapset.Set[atlas.Tile]) int {
	n := 0
	set.Each(func(t atlas.Tile) {
		if s.tiles.Has(t) {
			s.tiles.Remove(t)
			n++
		}
	})
	return n
}

// Close unloads every chunk and returns their keys. The session is unusable
// afterwards.
func (s *Session) Close() []store.ChunkKey {
	if s.closed {
		return nil
	}
	s.closed = true
	keys := s.tracker.Reset()
	for _, k := range keys {
		s.world.chunksUnloaded.Add(1)
		if s.observer != nil {
			s.observer.ChunkUnloaded(s.avatar.ID, k)
		}
	}
	s.world.sessions.Add(-1)
	return keys
}
