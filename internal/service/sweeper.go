package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultSweepInterval = 1 * time.Hour
	defaultMaxIdle       = 24 * time.Hour
	sweepRunTimeout      = 30 * time.Second
)

// SweeperService periodically closes idle sessions so resident memory
// tracks actual conversation activity. Each close persists a snapshot;
// the writes can be paced with a rate limit so closing a large batch
// does not flood the store.
type SweeperService struct {
	sessions *SessionManager
	logger   *zap.Logger

	interval time.Duration
	maxIdle  time.Duration
	limiter  *rate.Limiter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweeperService creates a sweeper with hourly runs, a 24h idle
// threshold and unpaced closes.
func NewSweeperService(sessions *SessionManager, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		sessions: sessions,
		logger:   logger,
		interval: defaultSweepInterval,
		maxIdle:  defaultMaxIdle,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		stopCh:   make(chan struct{}),
	}
}

// SetInterval overrides how often sweeps run.
func (s *SweeperService) SetInterval(d time.Duration) {
	s.interval = d
}

// SetMaxIdle overrides how long a session may sit untouched before a
// sweep closes it.
func (s *SweeperService) SetMaxIdle(d time.Duration) {
	s.maxIdle = d
}

// SetCloseRate paces session closes during a sweep. rps <= 0 removes
// the pacing.
func (s *SweeperService) SetCloseRate(rps float64, burst int) {
	if rps <= 0 {
		s.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	if burst < 1 {
		burst = 1
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Start runs the sweeper on a periodic schedule in a background goroutine.
func (s *SweeperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("session sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("max_idle", s.maxIdle))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), sweepRunTimeout)
				s.RunOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("session sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *SweeperService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunOnce performs a single paced sweep and returns how many sessions it
// closed. It aborts early when the context expires mid-sweep.
func (s *SweeperService) RunOnce(ctx context.Context) int {
	closed := 0
	for _, id := range s.sessions.IdleSessions(s.maxIdle) {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("session sweep aborted",
				zap.Int("closed", closed),
				zap.Error(err))
			return closed
		}
		err := s.sessions.Close(ctx, id, true)
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
		s.logger.Info("idle sessions swept", zap.Int("closed", closed))
	}
	return closed
}
