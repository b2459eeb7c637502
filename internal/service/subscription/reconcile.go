// internal/service/subscription/reconcile.go
package subscription

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/settings"
	"menupro-service/internal/domain/subscription"
	"menupro-service/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	outcomeUnchanged    = "unchanged"
	outcomeTransitioned = "transitioned"
	outcomeHealed       = "healed"
	outcomeFailed       = "failed"
)

// RunDailyChecks advances every subscribed restaurant through its lifecycle
// and repairs drifted plan flags. A failing restaurant is logged and counted;
// it never stops the pass. Re-running is safe: every step keys on absolute
// timestamps and only moves forward.
func (e *Engine) RunDailyChecks(ctx context.Context) (*subscription.ReconcileReport, error) {
	started := time.Now()
	report := &subscription.ReconcileReport{StartedAt: e.now()}

	pol, err := e.policy.Policy(ctx)
	if err != nil {
		metrics.RecordReconcileRun("failed", time.Since(started))
		return nil, fmt.Errorf("failed to load subscription settings: %w", err)
	}

	var mu sync.Mutex
	record := func(outcome string) {
		mu.Lock()
		defer mu.Unlock()
		report.Processed++
		switch outcome {
		case outcomeTransitioned:
			report.Transitioned++
		case outcomeHealed:
			report.Healed++
		case outcomeFailed:
			report.Failed++
		}
		metrics.RecordTenantOutcome(outcome)
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(started)
			metrics.RecordReconcileRun("failed", report.Duration)
			return report, err
		}

		ids, err := e.store.ListRestaurantIDs(ctx, afterID, e.pageSize)
		if err != nil {
			report.Duration = time.Since(started)
			metrics.RecordReconcileRun("failed", report.Duration)
			return report, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(e.workers)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				record(e.reconcileTenant(ctx, id, pol))
				return nil
			})
		}
		_ = g.Wait()

		afterID = ids[len(ids)-1]
		if len(ids) < e.pageSize {
			break
		}
	}

	report.Duration = time.Since(started)
	metrics.RecordReconcileRun("completed", report.Duration)

	e.logger.Info("daily subscription checks completed",
		zap.Int("processed", report.Processed),
		zap.Int("transitioned", report.Transitioned),
		zap.Int("healed", report.Healed),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// reconcileTenant handles one restaurant in its own transaction.
func (e *Engine) reconcileTenant(ctx context.Context, restaurantID int64, pol settings.Policy) (outcome string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while reconciling subscription",
				zap.Int64("restaurant_id", restaurantID),
				zap.Any("panic", r),
			)
			outcome = outcomeFailed
		}
	}()

	m, err := e.mutateRaw(ctx, restaurantID, func(m *mutation) error {
		return m.advance(pol)
	})
	if err != nil {
		e.logger.Error("failed to reconcile subscription",
			zap.Int64("restaurant_id", restaurantID),
			zap.Error(err),
		)
		return outcomeFailed
	}

	e.afterCommit(ctx, m)

	switch {
	case m.transitioned():
		return outcomeTransitioned
	case m.healed:
		return outcomeHealed
	default:
		return outcomeUnchanged
	}
}

// advance applies, in order: the malformed-record guard, the trial path,
// the paid path, grace expiry, then the plan flag self-heal.
func (m *mutation) advance(pol settings.Policy) error {
	rec := m.rec

	switch rec.Status {
	case subscription.StatusTrialing:
		if rec.TrialEndAt == nil {
			if err := m.expire(subscription.EventTrialExpired, notification.KindTrialExpired, "missing_trial_end"); err != nil {
				return err
			}
			break
		}
		if !rec.TrialEndAt.After(m.now) {
			if err := m.lapse(*rec.TrialEndAt, pol, true); err != nil {
				return err
			}
			break
		}
		m.remind(*rec.TrialEndAt, pol.NotifyDaysBeforeTrialEnd, true)

	case subscription.StatusActive:
		if rec.CurrentPeriodEndAt == nil {
			if err := m.expire(subscription.EventSubscriptionExpired, notification.KindSubscriptionExpired, "missing_period_end"); err != nil {
				return err
			}
			break
		}
		if !rec.CurrentPeriodEndAt.After(m.now) {
			if err := m.lapse(*rec.CurrentPeriodEndAt, pol, false); err != nil {
				return err
			}
			break
		}
		m.remind(*rec.CurrentPeriodEndAt, pol.NotifyDaysBeforePeriodEnd, false)

	case subscription.StatusGrace:
		// only the record's own grace end counts, whichever window it trails
		if rec.GraceEndAt == nil || !rec.GraceEndAt.After(m.now) {
			eventType, kind := subscription.EventSubscriptionExpired, notification.KindSubscriptionExpired
			if rec.GraceFromTrial() {
				eventType, kind = subscription.EventTrialExpired, notification.KindTrialExpired
			}
			if err := m.expire(eventType, kind, "grace_ended"); err != nil {
				return err
			}
		}
	}

	return m.heal()
}

// lapse moves a lapsed trial or paid window into grace, or straight to
// EXPIRED when the grace window is already over.
func (m *mutation) lapse(windowEnd time.Time, pol settings.Policy, trial bool) error {
	graceEvent, expiredEvent := subscription.EventPeriodGraceStarted, subscription.EventSubscriptionExpired
	graceKind, expiredKind := notification.KindPeriodGraceStarted, notification.KindSubscriptionExpired
	if trial {
		graceEvent, expiredEvent = subscription.EventTrialGraceStarted, subscription.EventTrialExpired
		graceKind, expiredKind = notification.KindTrialGraceStarted, notification.KindTrialExpired
	}

	graceEnd := windowEnd.AddDate(0, 0, pol.GraceDays)
	if m.rec.GraceEndAt != nil {
		graceEnd = *m.rec.GraceEndAt
	}
	m.rec.GraceEndAt = subscription.TimePtr(graceEnd)

	meta := map[string]interface{}{
		"window_end_at": windowEnd,
		"grace_end_at":  graceEnd,
		"grace_days":    pol.GraceDays,
	}

	if !graceEnd.After(m.now) {
		m.rec.Status = subscription.StatusExpired
		if err := m.transition(expiredEvent, meta); err != nil {
			return err
		}
		m.notify(expiredKind, expiredTitle(trial), expiredBody(trial), meta)
		return nil
	}

	m.rec.Status = subscription.StatusGrace
	if err := m.transition(graceEvent, meta); err != nil {
		return err
	}

	title := "Your PRO subscription has ended"
	if trial {
		title = "Your PRO trial has ended"
	}
	m.notify(graceKind, title,
		fmt.Sprintf("PRO features stay available until %s. Renew to keep them.", graceEnd.Format(dateLayout)),
		meta,
	)
	return nil
}

func (m *mutation) expire(eventType subscription.EventType, kind notification.Kind, reason string) error {
	m.rec.Status = subscription.StatusExpired
	meta := map[string]interface{}{"reason": reason}
	if err := m.transition(eventType, meta); err != nil {
		return err
	}

	trial := eventType == subscription.EventTrialExpired
	m.notify(kind, expiredTitle(trial), expiredBody(trial), meta)
	return nil
}

// remind queues a reminder on every pass while windowEnd is within leadDays.
func (m *mutation) remind(windowEnd time.Time, leadDays int, trial bool) {
	if leadDays <= 0 {
		return
	}
	left := windowEnd.Sub(m.now)
	if left > time.Duration(leadDays)*24*time.Hour {
		return
	}

	days := int(math.Ceil(left.Hours() / 24))
	meta := map[string]interface{}{
		"days_left":     days,
		"window_end_at": windowEnd,
	}

	if trial {
		m.notify(notification.KindTrialEndingSoon,
			"Your PRO trial is ending soon",
			fmt.Sprintf("Your trial ends in %d day(s), on %s.", days, windowEnd.Format(dateLayout)),
			meta,
		)
		return
	}
	m.notify(notification.KindPeriodEndingSoon,
		"Your PRO subscription is ending soon",
		fmt.Sprintf("Your subscription ends in %d day(s), on %s.", days, windowEnd.Format(dateLayout)),
		meta,
	)
}

// heal repairs current_plan when it drifted without any transition.
func (m *mutation) heal() error {
	want := m.rec.EffectivePlan(m.now)
	if want == m.plan {
		return nil
	}

	if err := m.appendEvent(subscription.EventPlanFlagRepaired, map[string]interface{}{
		"from":   string(m.plan),
		"to":     string(want),
		"status": string(m.rec.Status),
	}); err != nil {
		return err
	}
	if err := m.syncPlan(); err != nil {
		return err
	}

	m.healed = true
	m.e.logger.Warn("repaired restaurant plan flag",
		zap.Int64("restaurant_id", m.rec.RestaurantID),
		zap.String("subscription_id", m.rec.ID),
		zap.String("plan", string(want)),
	)
	return nil
}

func (m *mutation) transitioned() bool {
	for _, ev := range m.events {
		if ev != subscription.EventPlanFlagRepaired {
			return true
		}
	}
	return false
}

func expiredTitle(trial bool) string {
	if trial {
		return "Your PRO trial has expired"
	}
	return "Your PRO subscription has expired"
}

func expiredBody(trial bool) string {
	if trial {
		return "Your restaurant is back on the BASIC plan. Subscribe to unlock PRO features again."
	}
	return "Your restaurant is back on the BASIC plan. Renew to unlock PRO features again."
}
