// Package sweeper periodically removes cached stories past their lifetime.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Expirer deletes cached entries created before cutoff.
type Expirer interface {
	Expire(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	target   Expirer
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
	logger   *log.Logger
}

func New(target Expirer, interval, maxAge time.Duration, logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		logger:   logger.WithPrefix("sweeper"),
	}
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.target.Expire(ctx, s.now().Add(-s.maxAge))
}

// Run sweeps once immediately and then every interval until ctx is done.
// A failed pass is logged and the loop continues. A non-positive interval
// disables the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("cache sweeper disabled")
		return nil
	}
	s.logger.Info("cache sweeper started", "interval", s.interval, "max_age", s.maxAge)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("cache sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("cache sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
