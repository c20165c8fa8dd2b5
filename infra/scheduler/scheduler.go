// Package scheduler runs the nightly reconciliation on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/presale/pkg/service/payment"
	"github.com/robfig/cron/v3"
)

// Reconciler is the job the scheduler triggers.
type Reconciler interface {
	RunNightlyReconciliation(ctx context.Context, referenceDate time.Time) (*payment.ReconciliationSummary, error)
}

// Scheduler triggers a Reconciler on a standard five-field cron spec.
// Overlapping runs are skipped, and a panicking run is logged and recovered.
type Scheduler struct {
	cron    *cron.Cron
	job     Reconciler
	logger  *slog.Logger
	timeout time.Duration

	mu  sync.Mutex
	ctx context.Context
}

// New validates spec and registers the reconciliation job. A timeout of
// zero lets a run take as long as it needs.
func New(spec string, job Reconciler, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:     job,
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid reconciliation schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// a run in progress to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("⏰ reconciliation scheduler started", "next", s.Next())
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("reconciliation scheduler stopped")
	return nil
}

// Next returns the time of the upcoming run, zero if the scheduler is stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single reconciliation with the current time as reference.
func (s *Scheduler) RunOnce(ctx context.Context) (*payment.ReconciliationSummary, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	started := time.Now()
	summary, err := s.job.RunNightlyReconciliation(ctx, time.Time{})
	if err != nil {
		s.logger.Error("scheduled reconciliation failed", "error", err, "elapsed", time.Since(started))
		return nil, err
	}
	s.logger.Info("✅ scheduled reconciliation finished",
		"processed_rounds", summary.ProcessedRounds,
		"assignments", summary.Assignments,
		"refunds", summary.Refunds,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"elapsed", time.Since(started),
	)
	return summary, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
