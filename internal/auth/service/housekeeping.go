package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rohit5683/Portfolio-DevOps-sub001/internal/auth/store"
)

// Pruner drops expired in-process state, such as in-memory attempt counters.
type Pruner interface {
	Prune() int
}

// HousekeepingService periodically clears expired one-time codes so stale
// codes don't linger in the user table.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Pruners  []Pruner
	Clock    func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration, pruners ...Pruner) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Pruners:  pruners,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cleared, err := s.Store.Users().DeleteExpiredOTPs(ctx, clockNow(s.Clock))
	if err != nil {
		s.Logger.Error("failed to clear expired one-time codes", "error", err)
	}

	pruned := 0
	for _, p := range s.Pruners {
		pruned += p.Prune()
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_otps_cleared", cleared,
		"limiter_entries_pruned", pruned,
	)
}
