package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned while the breaker is open and requests
// are being shed instead of sent to a failing backend.
var ErrStoreUnavailable = errors.New("snapshot store unavailable")

// BreakerConfig tunes the circuit breaker around a snapshot store.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip
	// the circuit. Default: 5.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a probe request
	// is let through. Default: 30 seconds.
	Timeout time.Duration
}

// BreakerStore wraps another SnapshotStore with a circuit breaker, so a
// dead backend sheds load fast instead of stalling every session close
// during a sweep. A not-found result is a valid answer, not a backend
// failure, and never trips the circuit.
type BreakerStore struct {
	inner   domain.SnapshotStore
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewBreakerStore(inner domain.SnapshotStore, cfg BreakerConfig, logger *zap.Logger) *BreakerStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "snapshot-store",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("snapshot store circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerStore{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (s *BreakerStore) Put(ctx context.Context, snap *domain.Snapshot) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Put(ctx, snap)
	})
	return mapBreakerErr(err)
}

func (s *BreakerStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.Snapshot, error) {
	var notFound bool
	res, err := s.breaker.Execute(func() (any, error) {
		snap, err := s.inner.Get(ctx, sessionID)
		if errors.Is(err, ErrNotFound) {
			notFound = true
			return nil, nil
		}
		return snap, err
	})
	if notFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return res.(*domain.Snapshot), nil
}

func mapBreakerErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}
