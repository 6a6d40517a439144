package main

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/world"
)

type snapshotter struct {
	w       *world.World
	avatars world.AvatarStore
	idx     runtimeIndex
	dir     string
	log     *log.Logger

	mu        sync.Mutex
	lastMoves uint64
}

func (s *snapshotter) write(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.w.ExportSnapshot(ctx, s.avatars, time.Now())
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, snapshot.FileName(snap.Header.CreatedAt))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	s.lastMoves = snap.Header.Moves
	if s.idx != nil {
		s.idx.RecordSnapshot(path, snap)
	}
	return path, nil
}

// run writes a snapshot whenever SnapshotEveryMoves moves have accumulated,
// checking every interval.
func (s *snapshotter) run(ctx context.Context, interval time.Duration) {
	every := uint64(s.w.Config().SnapshotEveryMoves)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !s.due(every) {
				continue
			}
			if path, err := s.write(ctx); err != nil {
				s.log.Printf("snapshot write: %v", err)
			} else {
				s.log.Printf("snapshot %s", filepath.Base(path))
			}
		}
	}
}

func (s *snapshotter) due(every uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Metrics().Moves-s.lastMoves >= every
}
