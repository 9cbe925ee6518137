package application

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the pause between two sweeper passes.
const DefaultSweepInterval = time.Minute

// sweepRunner is the part of ReservationService the sweeper drives.
type sweepRunner interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// Sweeper periodically asks the reservation service to reclassify and purge.
type Sweeper struct {
	service  sweepRunner
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper ticking every interval.
func NewSweeper(service sweepRunner, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   defaultLogger(logger).With("component", "sweeper"),
	}
}

// Run blocks until ctx is done. A failed pass is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.service.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "sweep pass failed", "error", err, "error_kind", ErrorKind(err))
			}
		}
	}
}
