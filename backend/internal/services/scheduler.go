// Package services runs the background maintenance loops that keep the
// store healthy while the server is up.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"thoth/backend/internal/storage"
	"thoth/backend/pkg/logger"
)

// Scheduler periodically purges expired sessions so the session table
// does not grow without bound.
type Scheduler struct {
	store    *storage.Store
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewScheduler creates a scheduler over the store. A non-positive
// interval falls back to hourly.
func NewScheduler(store *storage.Store, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		store:    store,
		interval: interval,
		logger:   logger.Get(),
	}
}

// Start launches the maintenance loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return fmt.Errorf("scheduler already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	s.logger.Info("Maintenance scheduler started", zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One pass at startup clears anything left over from the previous
	// run.
	s.purgeSessions()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.purgeSessions()
		}
	}
}

func (s *Scheduler) purgeSessions() {
	purged, err := s.store.DeleteExpiredSessions(time.Now())
	if err != nil {
		s.logger.Error("Failed to purge expired sessions", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("Purged expired sessions", zap.Int64("count", purged))
	}
}

// Stop cancels the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped")
	case <-time.After(5 * time.Second):
		s.logger.Warn("Maintenance scheduler did not stop gracefully")
	}
}
