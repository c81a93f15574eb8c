package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mnemo-ai/mnemo/internal/domain"
)

// MemoryStore holds snapshots in process memory. It backs tests and
// single-process setups that can afford to lose history on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[uuid.UUID]*domain.Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[uuid.UUID]*domain.Snapshot)}
}

func (s *MemoryStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	cp := copySnapshot(snap)
	s.mu.Lock()
	s.snaps[snap.SessionID] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.snaps[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return copySnapshot(snap), nil
}

// copySnapshot detaches the item slice so callers and the store never
// share mutable state.
func copySnapshot(snap *domain.Snapshot) *domain.Snapshot {
	cp := *snap
	cp.Items = append([]domain.ContextItem(nil), snap.Items...)
	return &cp
}
