package world

import (
	"context"
	"fmt"
	"time"

	"tilerealm.dev/internal/persistence/snapshot"
	"tilerealm.dev/internal/sim/world/terrain/gen"
)

// ExportSnapshot captures the realm parameters and every stored avatar.
func (w *World) ExportSnapshot(ctx context.Context, avatars AvatarStore, now time.Time) (snapshot.RealmSnapshotV1, error) {
	cfg := w.Config()
	cats := w.Catalogs()
	snap := snapshot.RealmSnapshotV1{
		Header: snapshot.Header{
			Version:   snapshot.Version,
			RealmID:   cfg.ID,
			Moves:     w.Metrics().Moves,
			CreatedAt: now.UTC(),
		},
		Seed:         cfg.Seed,
		TileSize:     cfg.TileSize,
		Viewport:     [2]int{cfg.ViewportWidth, cfg.ViewportHeight},
		EvictDivisor: cfg.EvictDivisor,
		Noise: snapshot.NoiseV1{
			Frequency: cfg.Noise.Frequency,
			Scale:     cfg.Noise.Scale,
			Min:       cfg.Noise.Min,
			Max:       cfg.Noise.Max,
			Alpha:     cfg.Noise.Alpha,
			Beta:      cfg.Noise.Beta,
			Octaves:   cfg.Noise.Octaves,
		},
		Thresholds:         append([]float64(nil), cfg.Thresholds...),
		GrassBlend:         *cfg.GrassBlend,
		PathKeepPermille:   *cfg.PathKeepPermille,
		SnapshotEveryMoves: cfg.SnapshotEveryMoves,
		StructuresDigest:   cats.Structures.Digest,
		RealmDigest:        cats.Realm.Digest,
	}
	recs, err := avatars.Avatars(ctx)
	if err != nil {
		return snap, fmt.Errorf("list avatars: %w", err)
	}
	for _, r := range recs {
		snap.Avatars = append(snap.Avatars, snapshot.AvatarV1{
			ID:          r.ID,
			Name:        r.Name,
			ResumeToken: r.ResumeToken,
			X:           r.X,
			Y:           r.Y,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return snap, nil
}

// ConfigFromSnapshot restores the terrain-shaping parameters a snapshot was
// taken with; everything else comes from current tuning.
func ConfigFromSnapshot(base WorldConfig, snap snapshot.RealmSnapshotV1) WorldConfig {
	cfg := base
	cfg.Seed = snap.Seed
	cfg.TileSize = snap.TileSize
	cfg.ViewportWidth, cfg.ViewportHeight = snap.Viewport[0], snap.Viewport[1]
	cfg.EvictDivisor = snap.EvictDivisor
	cfg.Noise = gen.NoiseConfig{
		Seed:      snap.Seed,
		Frequency: snap.Noise.Frequency,
		Scale:     snap.Noise.Scale,
		Min:       snap.Noise.Min,
		Max:       snap.Noise.Max,
		Alpha:     snap.Noise.Alpha,
		Beta:      snap.Noise.Beta,
		Octaves:   snap.Noise.Octaves,
	}
	if len(snap.Thresholds) > 0 {
		cfg.Thresholds = gen.Thresholds(append([]float64(nil), snap.Thresholds...))
	}
	cfg.GrassBlend = intOpt(snap.GrassBlend)
	cfg.PathKeepPermille = intOpt(snap.PathKeepPermille)
	return cfg
}

// ImportAvatars seeds the store with snapshot avatars it does not know yet.
func ImportAvatars(ctx context.Context, avatars AvatarStore, snap snapshot.RealmSnapshotV1) (int, error) {
	n := 0
	for _, a := range snap.Avatars {
		if _, ok, err := avatars.Avatar(ctx, a.ID); err != nil {
			return n, err
		} else if ok {
			continue
		}
		if err := avatars.UpsertAvatar(ctx, AvatarRecord{
			ID:          a.ID,
			Name:        a.Name,
			ResumeToken: a.ResumeToken,
			X:           a.X,
			Y:           a.Y,
			UpdatedAt:   a.UpdatedAt,
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
