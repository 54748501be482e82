package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"projecthub/pkg/metrics"
	"projecthub/pkg/reporter"
	"projecthub/pkg/trace"
	"projecthub/pkg/util"
)

const lockKey = "sweep:overdue"

type SchedulerOptions struct {
	Interval   time.Duration
	RunOnStart bool
	// LockTTL bounds how long a crashed holder blocks other replicas.
	// Zero disables locking.
	LockTTL time.Duration
}

// Scheduler runs the sweeper on a ticker until its context is cancelled.
// A failed run is logged and reported; the loop keeps going.
type Scheduler struct {
	sweeper *Sweeper
	locker  util.Locker
	opts    SchedulerOptions
	logger  *zap.Logger
}

func NewScheduler(sweeper *Sweeper, locker util.Locker, opts SchedulerOptions, logger *zap.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	return &Scheduler{sweeper: sweeper, locker: locker, opts: opts, logger: logger}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting overdue sweep scheduler",
		zap.Duration("interval", s.opts.Interval),
		zap.Bool("run_on_start", s.opts.RunOnStart),
	)

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	if s.opts.RunOnStart {
		s.Tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Overdue sweep scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one guarded sweep and returns its summary, or nil when the
// run was skipped or failed. The lock is held only for the duration of
// the run.
func (s *Scheduler) Tick(ctx context.Context) (summary *Summary) {
	// one trace id per run
	ctx = trace.WithContext(ctx, trace.GenerateTraceID())

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sweep panic: %v", r)
			s.logger.Error("Overdue sweep panicked", zap.Error(err))
			reporter.Capture(ctx, err, map[string]string{"component": "sweep"})
			metrics.RecordSweep("failed", 0, 0)
			summary = nil
		}
	}()

	if s.locker != nil && s.opts.LockTTL > 0 {
		acquired, err := s.locker.Acquire(ctx, lockKey, s.opts.LockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Sweep lock unavailable, running unguarded", zap.Error(err))
		case !acquired:
			s.logger.Info("Sweep already running elsewhere, skipping tick")
			metrics.RecordSweep("skipped", 0, 0)
			return nil
		default:
			defer s.release(ctx)
		}
	}

	result, err := s.sweeper.Run(ctx)
	if err != nil {
		reporter.Capture(ctx, err, map[string]string{"component": "sweep"})
		metrics.RecordSweep("failed", 0, 0)
		return nil
	}

	metrics.RecordSweep("success", result.DueCount, result.OverdueCount)
	return result
}

// release survives cancellation of ctx so a shutdown mid-run still frees
// the lock.
func (s *Scheduler) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.locker.Release(ctx, lockKey); err != nil {
		s.logger.Warn("Failed to release sweep lock", zap.Error(err))
	}
}
