package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/store"
	"go.uber.org/zap"
)

var (
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// SessionManager tracks the resident sessions of one process and moves
// them in and out of the snapshot store. The registry lock covers only
// bookkeeping (creation, lookup, removal, last-access touches); snapshot
// I/O always happens outside it, so one session's slow persist never
// blocks the rest.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionEntry

	snapshots domain.SnapshotStore
	window    domain.ContextWindow
	logger    *zap.Logger
}

type sessionEntry struct {
	info    domain.SessionInfo
	manager *ContextManager
}

// NewSessionManager creates a registry that persists sessions through
// the snapshot store. A zero window applies the default retention policy
// to new sessions.
func NewSessionManager(snapshots domain.SnapshotStore, window domain.ContextWindow, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		sessions:  make(map[uuid.UUID]*sessionEntry),
		snapshots: snapshots,
		window:    window.Normalized(),
		logger:    logger,
	}
}

// Create registers a new resident session. A non-empty systemContext is
// seeded as an ordinary system_prompt item that competes for retention
// like everything else.
func (s *SessionManager) Create(id uuid.UUID, systemContext string) (*ContextManager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		return nil, ErrSessionExists
	}

	mgr := NewContextManager(id, s.window, s.logger)
	if systemContext != "" {
		mgr.Add(domain.AddInput{
			Kind:       domain.KindSystemPrompt,
			Payload:    systemContext,
			Importance: domain.DefaultImportance,
		})
	}

	now := time.Now()
	s.sessions[id] = &sessionEntry{
		info:    domain.SessionInfo{ID: id, CreatedAt: now, LastAccessAt: now},
		manager: mgr,
	}
	s.logger.Info("session created", zap.String("session_id", id.String()))
	return mgr, nil
}

// GetOrLoad returns the resident manager for the session, or rebuilds
// one from the snapshot store. A missing, unreadable, or corrupt
// snapshot degrades to a fresh empty manager; a conversation never fails
// on history it cannot read.
func (s *SessionManager) GetOrLoad(ctx context.Context, id uuid.UUID) *ContextManager {
	s.mu.Lock()
	if entry, ok := s.sessions[id]; ok {
		entry.info.LastAccessAt = time.Now()
		s.mu.Unlock()
		return entry.manager
	}
	s.mu.Unlock()

	mgr := NewContextManager(id, s.window, s.logger)
	snap, err := s.snapshots.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First sight of this session.
	case err != nil:
		s.logger.Warn("snapshot load failed, starting fresh",
			zap.String("session_id", id.String()),
			zap.Error(err))
	case snap.SessionID != id:
		s.logger.Warn("snapshot session id mismatch, starting fresh",
			zap.String("session_id", id.String()),
			zap.String("snapshot_session_id", snap.SessionID.String()))
	default:
		if err := mgr.Import(snap); err != nil {
			s.logger.Warn("snapshot import failed, starting fresh",
				zap.String("session_id", id.String()),
				zap.Error(err))
			mgr = NewContextManager(id, s.window, s.logger)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[id]; ok {
		// Another loader won the race while we were reading the store.
		entry.info.LastAccessAt = time.Now()
		return entry.manager
	}
	now := time.Now()
	s.sessions[id] = &sessionEntry{
		info:    domain.SessionInfo{ID: id, CreatedAt: now, LastAccessAt: now},
		manager: mgr,
	}
	return mgr
}

// Close evicts a resident session, persisting it first when asked. A
// failed persist is returned as an error, but the session is dropped
// regardless so a broken store cannot pin memory.
func (s *SessionManager) Close(ctx context.Context, id uuid.UUID, persist bool) error {
	entry := s.detach(id)
	if entry == nil {
		return ErrSessionNotFound
	}
	if persist {
		if err := s.snapshots.Put(ctx, entry.manager.Export()); err != nil {
			s.logger.Error("session persist failed on close",
				zap.String("session_id", id.String()),
				zap.Error(err))
			return fmt.Errorf("persist session %s: %w", id, err)
		}
	}
	s.logger.Info("session closed",
		zap.String("session_id", id.String()),
		zap.Bool("persisted", persist))
	return nil
}

// Archive persists the session and evicts it. Behaviorally the same as
// Close with persistence; archived sessions reload on their next
// GetOrLoad like any other.
func (s *SessionManager) Archive(ctx context.Context, id uuid.UUID) error {
	entry := s.detach(id)
	if entry == nil {
		return ErrSessionNotFound
	}
	if err := s.snapshots.Put(ctx, entry.manager.Export()); err != nil {
		s.logger.Error("session persist failed on archive",
			zap.String("session_id", id.String()),
			zap.Error(err))
		return fmt.Errorf("persist session %s: %w", id, err)
	}
	s.logger.Info("session archived", zap.String("session_id", id.String()))
	return nil
}

// SweepIdle closes, with persistence, every resident session idle for at
// least maxIdle. Per-session failures are logged and the sweep moves on.
// Returns how many sessions were evicted.
func (s *SessionManager) SweepIdle(ctx context.Context, maxIdle time.Duration) int {
	closed := 0
	for _, id := range s.IdleSessions(maxIdle) {
		err := s.Close(ctx, id, true)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("idle session close failed",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
		closed++
	}
	if closed > 0 {
		s.logger.Info("idle sessions swept",
			zap.Int("closed", closed),
			zap.Duration("max_idle", maxIdle))
	}
	return closed
}

// IdleSessions lists resident sessions untouched for at least maxIdle.
func (s *SessionManager) IdleSessions(maxIdle time.Duration) []uuid.UUID {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idle []uuid.UUID
	for id, entry := range s.sessions {
		if entry.info.LastAccessAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}

// ActiveSessions lists resident session ids in a stable order.
func (s *SessionManager) ActiveSessions() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *SessionManager) detach(id uuid.UUID) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil
	}
	delete(s.sessions, id)
	return entry
}
