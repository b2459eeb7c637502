// internal/domain/subscription/entity.go
package subscription

import (
	"time"
)

type Plan string

const (
	PlanBasic Plan = "BASIC"
	PlanPro   Plan = "PRO"
)

type Status string

const (
	StatusTrialing  Status = "TRIALING"
	StatusActive    Status = "ACTIVE"
	StatusGrace     Status = "GRACE"
	StatusExpired   Status = "EXPIRED"
	StatusCanceled  Status = "CANCELED"
	StatusSuspended Status = "SUSPENDED"
)

// SubscriptionRecord is the single PRO entitlement record of a restaurant.
type SubscriptionRecord struct {
	ID           string `json:"id" db:"id"`
	RestaurantID int64  `json:"restaurant_id" db:"restaurant_id"`
	Plan         Plan   `json:"plan" db:"plan"`
	Status       Status `json:"status" db:"status"`

	// Trial window, consumed once
	TrialStartAt *time.Time `json:"trial_start_at,omitempty" db:"trial_start_at"`
	TrialEndAt   *time.Time `json:"trial_end_at,omitempty" db:"trial_end_at"`

	// Paid window
	CurrentPeriodStartAt *time.Time `json:"current_period_start_at,omitempty" db:"current_period_start_at"`
	CurrentPeriodEndAt   *time.Time `json:"current_period_end_at,omitempty" db:"current_period_end_at"`

	// Shared by trial grace and period grace
	GraceEndAt *time.Time `json:"grace_end_at,omitempty" db:"grace_end_at"`

	CancelAtPeriodEnd bool       `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty" db:"canceled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewRecord builds the initial EXPIRED record created on first use.
func NewRecord(id string, restaurantID int64, now time.Time) *SubscriptionRecord {
	return &SubscriptionRecord{
		ID:           id,
		RestaurantID: restaurantID,
		Plan:         PlanPro,
		Status:       StatusExpired,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Touch stamps UpdatedAt. Mutating operations call it explicitly.
func (r *SubscriptionRecord) Touch(now time.Time) {
	r.UpdatedAt = now
}

// EntitledAt reports whether the record grants PRO at the given instant.
func (r *SubscriptionRecord) EntitledAt(now time.Time) bool {
	switch r.Status {
	case StatusTrialing:
		return after(r.TrialEndAt, now)
	case StatusActive:
		return after(r.CurrentPeriodEndAt, now)
	case StatusGrace:
		return after(r.GraceEndAt, now)
	default:
		return false
	}
}

// EffectivePlan is the value the restaurant's denormalized current_plan must hold.
func (r *SubscriptionRecord) EffectivePlan(now time.Time) Plan {
	if r.EntitledAt(now) {
		return PlanPro
	}
	return PlanBasic
}

func (r *SubscriptionRecord) TrialUsed() bool {
	return r.TrialStartAt != nil
}

// GraceFromTrial reports whether the grace window trails the trial rather than a paid period.
func (r *SubscriptionRecord) GraceFromTrial() bool {
	if r.TrialEndAt == nil {
		return false
	}
	if r.CurrentPeriodEndAt == nil {
		return true
	}
	return r.TrialEndAt.After(*r.CurrentPeriodEndAt)
}

// PeriodOpen reports whether a paid period exists and has not lapsed.
func (r *SubscriptionRecord) PeriodOpen(now time.Time) bool {
	return r.CurrentPeriodStartAt != nil && after(r.CurrentPeriodEndAt, now)
}

// Clone returns a deep copy so callers can mutate without aliasing timestamps.
func (r *SubscriptionRecord) Clone() *SubscriptionRecord {
	c := *r
	c.TrialStartAt = cloneTime(r.TrialStartAt)
	c.TrialEndAt = cloneTime(r.TrialEndAt)
	c.CurrentPeriodStartAt = cloneTime(r.CurrentPeriodStartAt)
	c.CurrentPeriodEndAt = cloneTime(r.CurrentPeriodEndAt)
	c.GraceEndAt = cloneTime(r.GraceEndAt)
	c.CanceledAt = cloneTime(r.CanceledAt)
	return &c
}

func after(t *time.Time, now time.Time) bool {
	return t != nil && t.After(now)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func TimePtr(t time.Time) *time.Time {
	return &t
}
