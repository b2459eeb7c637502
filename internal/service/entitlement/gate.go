// internal/service/entitlement/gate.go
package entitlement

import (
	"context"
	"time"

	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNoSubscription Reason = "no_subscription"
	ReasonWindowLapsed   Reason = "window_lapsed"
	ReasonSuspended      Reason = "suspended"
	ReasonCanceled       Reason = "canceled"
	ReasonExpired        Reason = "expired"
	ReasonUnavailable    Reason = "unavailable"
)

// Decision is the explicit allow / deny-with-reason result callers branch on.
type Decision struct {
	RestaurantID int64               `json:"restaurant_id"`
	Allowed      bool                `json:"allowed"`
	Reason       Reason              `json:"reason,omitempty"`
	Status       subscription.Status `json:"status,omitempty"`
	Until        *time.Time          `json:"until,omitempty"`
}

// Checker is the read side of the subscription engine. Evaluate returns the
// record together with its entitlement, both taken from a single read.
type Checker interface {
	Evaluate(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, bool, error)
}

type Gate struct {
	checker Checker
}

func NewGate(checker Checker) *Gate {
	return &Gate{checker: checker}
}

// Check never fails; lookup problems deny with ReasonUnavailable.
func (g *Gate) Check(ctx context.Context, restaurantID int64) Decision {
	rec, allowed, err := g.checker.Evaluate(ctx, restaurantID)
	if err != nil {
		d := Decision{RestaurantID: restaurantID, Allowed: false, Reason: ReasonUnavailable}
		if xerrors.Is(err, xerrors.ErrNotFound) {
			d.Reason = ReasonNoSubscription
		}
		return d
	}

	d := Decision{RestaurantID: restaurantID, Allowed: allowed, Status: rec.Status}
	if allowed {
		d.Until = activeUntil(rec)
		return d
	}

	switch rec.Status {
	case subscription.StatusSuspended:
		d.Reason = ReasonSuspended
	case subscription.StatusCanceled:
		d.Reason = ReasonCanceled
	case subscription.StatusExpired:
		d.Reason = ReasonExpired
	default:
		d.Reason = ReasonWindowLapsed
	}
	return d
}

func activeUntil(rec *subscription.SubscriptionRecord) *time.Time {
	switch rec.Status {
	case subscription.StatusTrialing:
		return rec.TrialEndAt
	case subscription.StatusActive:
		return rec.CurrentPeriodEndAt
	case subscription.StatusGrace:
		return rec.GraceEndAt
	}
	return nil
}
