package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/store"
)

// DefaultHousekeepingInterval is how often expired OTP codes get purged.
const DefaultHousekeepingInterval = 10 * time.Minute

// HousekeepingService periodically clears expired OTP codes. Expired rows are
// already unverifiable, so this is purely hygiene; a missed run changes no
// observable behaviour.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration // falls back to DefaultHousekeepingInterval when zero
}

// Run blocks until the context is cancelled, sweeping on every tick. Call it
// from a goroutine.
func (s *HousekeepingService) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Logger.Info("housekeeping started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("housekeeping stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *HousekeepingService) sweep(ctx context.Context) {
	if err := s.Store.OTPCodes().DeleteExpiredOTPCodes(ctx); err != nil {
		s.Logger.Error("failed to purge expired OTP codes", "error", err)
	}
}
