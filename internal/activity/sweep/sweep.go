// Package sweep schedules the overdue-condition sweep.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	activitymetrics "dealflow/internal/activity/metrics"
)

// Sweeper flags conditions past their due date. The workflow service implements it.
type Sweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	metrics *activitymetrics.Metrics
	now     func() time.Time
}

// New registers the sweep on schedule (standard cron or "@every 15m").
// Overlapping runs are skipped and panics are recovered.
func New(schedule string, sweeper Sweeper, logger *slog.Logger, m *activitymetrics.Metrics) (*Scheduler, error) {
	s := &Scheduler{sweeper: sweeper, logger: logger, metrics: m, now: time.Now}
	cronLogger := cron.DiscardLogger
	if logger != nil {
		cronLogger = cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce performs one sweep and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	flagged, err := s.sweeper.SweepOverdue(ctx, s.now().UTC())
	s.metrics.AddOverdueFlagged(flagged)
	if err != nil {
		s.metrics.IncSweepFailure()
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "overdue sweep failed", "error", err, "flagged", flagged)
		}
		return flagged
	}
	if s.logger != nil && flagged > 0 {
		s.logger.InfoContext(ctx, "overdue sweep flagged conditions", "flagged", flagged)
	}
	return flagged
}

// Start runs the scheduler until ctx is done, then waits for a running sweep.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}
