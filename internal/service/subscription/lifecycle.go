// internal/service/subscription/lifecycle.go
package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"menupro-service/internal/domain/notification"
	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const dateLayout = "2 Jan 2006"

// EnsureSubscription returns the restaurant's record, creating it in EXPIRED on first use.
func (e *Engine) EnsureSubscription(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	return e.mutate(ctx, restaurantID, "ensure subscription", func(m *mutation) error {
		return nil
	})
}

// StartTrial opens the one-time trial window.
func (e *Engine) StartTrial(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	pol, err := e.loadPolicy(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if !pol.TrialEnabled {
		return nil, xerrors.New(xerrors.CodeInvalidParameters, restaurantID, "trial disabled")
	}

	rec, err := e.mutate(ctx, restaurantID, "start trial", func(m *mutation) error {
		rec := m.rec
		if pol.TrialOncePerTenant && rec.TrialUsed() {
			return xerrors.New(xerrors.CodeInvalidStateTransition, restaurantID, "trial already used")
		}
		if rec.Status == subscription.StatusSuspended {
			return xerrors.New(xerrors.CodeInvalidStateTransition, restaurantID, "subscription is suspended")
		}
		if rec.Status == subscription.StatusActive && rec.PeriodOpen(m.now) {
			return xerrors.New(xerrors.CodeInvalidStateTransition, restaurantID, "a paid period is already active")
		}

		end := m.now.AddDate(0, 0, pol.TrialDays)
		rec.TrialStartAt = subscription.TimePtr(m.now)
		rec.TrialEndAt = subscription.TimePtr(end)
		rec.GraceEndAt = nil
		rec.Status = subscription.StatusTrialing

		meta := map[string]interface{}{
			"trial_days":   pol.TrialDays,
			"trial_end_at": end,
		}
		if err := m.transition(subscription.EventTrialStarted, meta); err != nil {
			return err
		}

		m.notify(notification.KindTrialStarted,
			"Your PRO trial has started",
			fmt.Sprintf("You have full access to PRO features until %s.", end.Format(dateLayout)),
			meta,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("trial started",
		zap.Int64("restaurant_id", restaurantID),
		zap.String("subscription_id", rec.ID),
		zap.Time("trial_end_at", *rec.TrialEndAt),
	)
	return rec, nil
}

// GrantPaidDays opens or extends the paid period. Extensions stack on the
// later of now and the current end, so a window is never shortened.
func (e *Engine) GrantPaidDays(ctx context.Context, restaurantID int64, in subscription.GrantInput) (*subscription.SubscriptionRecord, error) {
	if in.Days <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidParameters, restaurantID, "days must be greater than zero")
	}

	eventType := subscription.EventAdminGrant
	if in.Source == subscription.GrantSourcePayment {
		eventType = subscription.EventManualPaymentGrant
	}

	rec, err := e.mutate(ctx, restaurantID, "grant paid days", func(m *mutation) error {
		rec := m.rec
		if rec.Status == subscription.StatusSuspended {
			return xerrors.New(xerrors.CodeInvalidStateTransition, restaurantID, "subscription is suspended")
		}

		// Only a live ACTIVE period stacks; a revoked or lapsed one starts over.
		extended := rec.Status == subscription.StatusActive && rec.PeriodOpen(m.now)
		if extended {
			base := *rec.CurrentPeriodEndAt
			if m.now.After(base) {
				base = m.now
			}
			rec.CurrentPeriodEndAt = subscription.TimePtr(base.AddDate(0, 0, in.Days))
		} else {
			rec.CurrentPeriodStartAt = subscription.TimePtr(m.now)
			rec.CurrentPeriodEndAt = subscription.TimePtr(m.now.AddDate(0, 0, in.Days))
		}
		rec.Status = subscription.StatusActive
		rec.GraceEndAt = nil
		rec.CancelAtPeriodEnd = false
		rec.CanceledAt = nil

		meta := map[string]interface{}{
			"days":          in.Days,
			"granted_by":    in.GrantedBy,
			"period_end_at": *rec.CurrentPeriodEndAt,
			"extended":      extended,
		}
		if note := strings.TrimSpace(in.Note); note != "" {
			meta["note"] = note
		}
		for k, v := range in.Metadata {
			meta[k] = v
		}
		if err := m.transition(eventType, meta); err != nil {
			return err
		}

		m.notify(notification.KindSubscriptionExtended,
			"Subscription extended",
			fmt.Sprintf("Your PRO subscription was extended by %d days and now runs until %s.",
				in.Days, rec.CurrentPeriodEndAt.Format(dateLayout)),
			map[string]interface{}{"days": in.Days, "period_end_at": *rec.CurrentPeriodEndAt},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("paid days granted",
		zap.Int64("restaurant_id", restaurantID),
		zap.String("subscription_id", rec.ID),
		zap.String("event_type", string(eventType)),
		zap.Int("days", in.Days),
		zap.String("granted_by", in.GrantedBy),
	)
	return rec, nil
}

// OnManualPaymentApproved grants the default paid period for a verified payment.
// The caller guarantees each payment reaches here at most once.
func (e *Engine) OnManualPaymentApproved(ctx context.Context, p subscription.ApprovedPayment) (*subscription.SubscriptionRecord, error) {
	pol, err := e.loadPolicy(ctx, p.RestaurantID)
	if err != nil {
		return nil, err
	}

	return e.GrantPaidDays(ctx, p.RestaurantID, subscription.GrantInput{
		Days:      pol.DefaultPaidDays,
		GrantedBy: string(subscription.GrantSourcePayment),
		Source:    subscription.GrantSourcePayment,
		Metadata: map[string]interface{}{
			"payment_id":     p.PaymentID,
			"amount":         p.Amount,
			"currency":       p.Currency,
			"transaction_id": p.TransactionID,
			"approved_by":    p.ApprovedBy,
		},
	})
}

// ForceExpireSubscription ends entitlement immediately, whatever windows remain.
func (e *Engine) ForceExpireSubscription(ctx context.Context, restaurantID int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error) {
	rec, err := e.mutate(ctx, restaurantID, "force expire subscription", func(m *mutation) error {
		rec := m.rec
		previous := rec.Status

		rec.Status = subscription.StatusExpired
		rec.CancelAtPeriodEnd = true
		rec.CanceledAt = subscription.TimePtr(m.now)
		rec.GraceEndAt = nil
		rec.TrialEndAt = capAt(rec.TrialEndAt, m.now)
		rec.CurrentPeriodEndAt = capAt(rec.CurrentPeriodEndAt, m.now)

		meta := map[string]interface{}{
			"reason":          reason,
			"forced_by":       actorID,
			"previous_status": string(previous),
		}
		if err := m.transition(subscription.EventForceExpired, meta); err != nil {
			return err
		}

		m.notify(notification.KindSubscriptionForceEnd,
			"PRO subscription ended",
			"Your PRO subscription has been ended by an administrator.",
			map[string]interface{}{"reason": reason},
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Warn("subscription force expired",
		zap.Int64("restaurant_id", restaurantID),
		zap.String("subscription_id", rec.ID),
		zap.String("reason", reason),
		zap.Int64("actor_id", actorID),
	)
	return rec, nil
}

// Suspend freezes the subscription. No time transitions run while suspended.
func (e *Engine) Suspend(ctx context.Context, restaurantID int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error) {
	return e.mutate(ctx, restaurantID, "suspend subscription", func(m *mutation) error {
		rec := m.rec
		if rec.Status == subscription.StatusSuspended {
			return xerrors.New(xerrors.CodeAlreadySuspended, restaurantID, "subscription is already suspended")
		}

		previous := rec.Status
		rec.Status = subscription.StatusSuspended

		if err := m.transition(subscription.EventSuspended, map[string]interface{}{
			"reason":          reason,
			"suspended_by":    actorID,
			"previous_status": string(previous),
		}); err != nil {
			return err
		}

		m.notify(notification.KindSubscriptionSuspended,
			"PRO subscription suspended",
			"Your PRO subscription has been suspended. Contact support for details.",
			map[string]interface{}{"reason": reason},
		)
		return nil
	})
}

// Unsuspend restores the status implied by whichever window is still open.
func (e *Engine) Unsuspend(ctx context.Context, restaurantID int64, actorID int64) (*subscription.SubscriptionRecord, error) {
	return e.mutate(ctx, restaurantID, "unsuspend subscription", func(m *mutation) error {
		rec := m.rec
		if rec.Status != subscription.StatusSuspended {
			return xerrors.New(xerrors.CodeNotSuspended, restaurantID, "subscription is not suspended")
		}

		rec.Status = resumeStatus(rec, m.now)

		return m.transition(subscription.EventUnsuspended, map[string]interface{}{
			"unsuspended_by": actorID,
			"status":         string(rec.Status),
		})
	})
}

// capAt cuts a window end back to now when it still lies in the future.
func capAt(end *time.Time, now time.Time) *time.Time {
	if end == nil || !end.After(now) {
		return end
	}
	return subscription.TimePtr(now)
}

func resumeStatus(rec *subscription.SubscriptionRecord, now time.Time) subscription.Status {
	switch {
	case rec.PeriodOpen(now):
		return subscription.StatusActive
	case rec.TrialEndAt != nil && rec.TrialEndAt.After(now):
		return subscription.StatusTrialing
	case rec.GraceEndAt != nil && rec.GraceEndAt.After(now):
		return subscription.StatusGrace
	default:
		return subscription.StatusExpired
	}
}
