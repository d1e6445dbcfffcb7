package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Fahimkhan9/clubos/internal/clubos/store"
)

// HousekeepingService periodically drops expired invites and lapsed password
// reset tokens. Sessions are deliberately left alone; revoked and expired
// rows stay as an audit trail.
type HousekeepingService struct {
	store    store.Store
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		store:    st,
		logger:   logger,
		interval: interval,
	}
}

// Start launches the background sweep loop. One sweep runs immediately.
func (s *HousekeepingService) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	s.logger.Info("housekeeping started", slog.Duration("interval", s.interval))
}

// Stop halts the loop and waits for any in-flight sweep to finish.
func (s *HousekeepingService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) sweep(ctx context.Context) {
	if err := s.store.Invites().DeleteExpiredInvites(ctx); err != nil {
		s.logger.Error("housekeeping: failed to delete expired invites", slog.Any("error", err))
	}
	if err := s.store.Users().ClearExpiredResetTokens(ctx); err != nil {
		s.logger.Error("housekeeping: failed to clear expired reset tokens", slog.Any("error", err))
	}
}
