package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/authcore/internal/dbx"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/dmitrijs2005/authcore/internal/server/metrics"
	"github.com/dmitrijs2005/authcore/internal/server/repositories/repomanager"
)

// Sweeper periodically purges expired session rows. Reads already treat
// them as absent; sweeping only reclaims space.
type Sweeper struct {
	runner   dbx.Runner
	repos    repomanager.RepositoryManager
	interval time.Duration
	metrics  *metrics.Metrics
	logger   logging.Logger
	now      func() time.Time
}

func NewSweeper(runner dbx.Runner, repos repomanager.RepositoryManager, interval time.Duration, m *metrics.Metrics, logger logging.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		runner:   runner,
		repos:    repos,
		interval: interval,
		metrics:  m,
		logger:   logger.With("module", "sweeper"),
		now:      time.Now,
	}
}

// SweepOnce deletes rows expired at the current time.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.repos.Sessions(s.runner.Conn()).DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error(ctx, "sweep failed", "error", err)
		return 0, err
	}
	s.metrics.Swept(n)
	if n > 0 {
		s.logger.Info(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
