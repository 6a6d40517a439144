package world

import (
	"context"
	"sort"
	"sync"
	"time"

	"tilerealm.dev/internal/sim/world/atlas"
)

// AvatarRecord is the persisted form of an avatar: who it is and where it
// last stood, in pixels.
type AvatarRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ResumeToken string    `json:"resume_token"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r AvatarRecord) Position() atlas.Coordinate { return atlas.Of(r.X, r.Y) }

// AvatarStore is the position source for avatars across connections.
type AvatarStore interface {
	UpsertAvatar(ctx context.Context, r AvatarRecord) error
	Avatar(ctx context.Context, id string) (AvatarRecord, bool, error)
	ByResumeToken(ctx context.Context, token string) (AvatarRecord, bool, error)
	Avatars(ctx context.Context) ([]AvatarRecord, error)
}

// Record captures the avatar's current position. An unplaced avatar records
// the zero coordinate.
func (a *Avatar) Record(resumeToken string, now time.Time) AvatarRecord {
	return AvatarRecord{
		ID:          a.ID,
		Name:        a.Name,
		ResumeToken: resumeToken,
		X:           a.world.X,
		Y:           a.world.Y,
		UpdatedAt:   now.UTC(),
	}
}

// MemoryAvatarStore keeps avatars in process. It backs the server when the
// sqlite index is disabled.
type MemoryAvatarStore struct {
	mu   sync.Mutex
	byID map[string]AvatarRecord
}

func NewMemoryAvatarStore() *MemoryAvatarStore {
	return &MemoryAvatarStore{byID: map[string]AvatarRecord{}}
}

func (m *MemoryAvatarStore) UpsertAvatar(_ context.Context, r AvatarRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[r.ID] = r
	return nil
}

func (m *MemoryAvatarStore) Avatar(_ context.Context, id string) (AvatarRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	return r, ok, nil
}

func (m *MemoryAvatarStore) ByResumeToken(_ context.Context, token string) (AvatarRecord, bool, error) {
	if token == "" {
		return AvatarRecord{}, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.ResumeToken == token {
			return r, true, nil
		}
	}
	return AvatarRecord{}, false, nil
}

func (m *MemoryAvatarStore) Avatars(_ context.Context) ([]AvatarRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AvatarRecord, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
