package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/opkit/authd/internal/auth/store"
)

// HousekeepingService periodically deletes expired session rows so the
// sessions table cannot grow without bound. Pruning only ever touches rows
// past their expiry, so it cannot interfere with live sessions.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.PruneExpiredSessions(context.Background())

	for {
		select {
		case <-ticker.C:
			s.PruneExpiredSessions(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// PruneExpiredSessions deletes sessions past their expiry and returns the
// number removed.
func (s *HousekeepingService) PruneExpiredSessions(ctx context.Context) int64 {
	deleted, err := s.Store.Sessions().DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
		return 0
	}
	if deleted > 0 {
		s.Logger.Info("pruned expired sessions", "deleted", deleted)
	}
	return deleted
}
