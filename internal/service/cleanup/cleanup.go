package cleanup

import (
	"context"
	"time"

	"github.com/nkiryanov/campusauth/internal/logger"
)

const defaultInterval = 10 * time.Minute

// Something that may drop records expired at 'now'
type Target struct {
	Name  string
	Sweep func(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically drops expired refresh tokens and revocations
// Expired records are already useless, sweeping only bounds storage size
type Sweeper struct {
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
	targets  []Target
}

// If interval is not positive the default one is used
func New(interval time.Duration, logger logger.Logger, targets ...Target) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Sweeper{
		interval: interval,
		logger:   logger,
		now:      time.Now,
		targets:  targets,
	}
}

// Run sweeps every interval until ctx is done
// Returned channel is closed when sweeper stopped
func (s *Sweeper) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	s.logger.Debug("Starting sweeper", "interval", s.interval, "targets", len(s.targets))

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Debug("Sweeper stopped by context")
				return

			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()

	return idleStopped
}

// SweepOnce runs every target once. Failed target doesn't stop the others
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.now()

	for _, target := range s.targets {
		if ctx.Err() != nil {
			return
		}

		deleted, err := target.Sweep(ctx, now)
		if err != nil {
			s.logger.Error("Failed to sweep expired records", "target", target.Name, "error", err)
			continue
		}
		if deleted > 0 {
			s.logger.Info("Expired records swept", "target", target.Name, "deleted", deleted)
		}
	}
}
