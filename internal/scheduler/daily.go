// internal/scheduler/daily.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"menupro-service/internal/domain/subscription"
	"menupro-service/internal/metrics"
	"menupro-service/internal/pkg/lease"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobName = "subscription-daily-checks"

// Runner performs one reconciliation pass.
type Runner interface {
	RunDailyChecks(ctx context.Context) (*subscription.ReconcileReport, error)
}

type Config struct {
	Spec     string
	Timezone string
	LeaseTTL time.Duration
}

// DailyScheduler fires the daily checks on a cron schedule. With a lease store
// only one replica runs per tick, and a finished day is not run again unless forced.
type DailyScheduler struct {
	runner   Runner
	leases   *lease.Store
	cron     *cron.Cron
	spec     string
	loc      *time.Location
	leaseTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewDailyScheduler(runner Runner, leases *lease.Store, cfg Config, logger *zap.Logger) (*DailyScheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid daily check timezone %q: %w", cfg.Timezone, err)
	}
	if _, err := cron.ParseStandard(cfg.Spec); err != nil {
		return nil, fmt.Errorf("invalid daily check schedule %q: %w", cfg.Spec, err)
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 30 * time.Minute
	}

	return &DailyScheduler{
		runner:   runner,
		leases:   leases,
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     cfg.Spec,
		loc:      loc,
		leaseTTL: cfg.LeaseTTL,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Start registers the job and starts the cron loop in the background.
func (s *DailyScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.leaseTTL)
		defer cancel()
		if _, err := s.Trigger(ctx, false); err != nil {
			s.logger.Error("scheduled daily checks failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily checks: %w", err)
	}

	s.cron.Start()
	s.logger.Info("daily checks scheduled",
		zap.String("spec", s.spec),
		zap.String("timezone", s.loc.String()),
	)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger runs the checks now. A run skipped because the day is already done
// or another holder owns the lease returns a report with Skipped set.
func (s *DailyScheduler) Trigger(ctx context.Context, force bool) (*subscription.ReconcileReport, error) {
	day := s.now().In(s.loc).Format("2006-01-02")

	if s.leases == nil {
		return s.runner.RunDailyChecks(ctx)
	}

	if !force {
		done, err := s.leases.IsDone(ctx, jobName, day)
		if err != nil {
			return nil, err
		}
		if done {
			s.logger.Info("daily checks already completed", zap.String("day", day))
			return s.skipped(), nil
		}
	}

	held, err := s.leases.Acquire(ctx, jobName, ulid.Make().String(), s.leaseTTL)
	if err != nil {
		return nil, err
	}
	if held == nil {
		s.logger.Info("daily checks running elsewhere", zap.String("day", day))
		return s.skipped(), nil
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, lease.ErrNotHeld) {
			s.logger.Warn("failed to release daily checks lease", zap.Error(err))
		}
	}()

	report, err := s.runner.RunDailyChecks(ctx)
	if err != nil {
		return report, err
	}

	if err := s.leases.MarkDone(ctx, jobName, day); err != nil {
		s.logger.Warn("failed to mark daily checks done", zap.String("day", day), zap.Error(err))
	}
	return report, nil
}

func (s *DailyScheduler) skipped() *subscription.ReconcileReport {
	metrics.RecordReconcileRun("skipped", 0)
	return &subscription.ReconcileReport{StartedAt: s.now(), Skipped: true}
}
