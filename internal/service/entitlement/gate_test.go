package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	valid bool
	rec   *subscription.SubscriptionRecord
	err   error
	reads int
}

func (s *stubChecker) Evaluate(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, bool, error) {
	s.reads++
	if s.err != nil {
		return nil, false, s.err
	}
	return s.rec, s.valid, nil
}

func TestGate_Check(t *testing.T) {
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		checker    *stubChecker
		wantAllow  bool
		wantReason Reason
		wantUntil  *time.Time
	}{
		{
			name:      "active",
			checker:   &stubChecker{valid: true, rec: &subscription.SubscriptionRecord{Status: subscription.StatusActive, CurrentPeriodEndAt: &end}},
			wantAllow: true,
			wantUntil: &end,
		},
		{
			name:      "grace",
			checker:   &stubChecker{valid: true, rec: &subscription.SubscriptionRecord{Status: subscription.StatusGrace, GraceEndAt: &end}},
			wantAllow: true,
			wantUntil: &end,
		},
		{
			name:       "no record",
			checker:    &stubChecker{err: xerrors.New(xerrors.CodeSubscriptionNotFound, 1, "subscription not found")},
			wantReason: ReasonNoSubscription,
		},
		{
			name:       "storage failure",
			checker:    &stubChecker{err: errors.New("timeout")},
			wantReason: ReasonUnavailable,
		},
		{
			name:       "suspended",
			checker:    &stubChecker{rec: &subscription.SubscriptionRecord{Status: subscription.StatusSuspended}},
			wantReason: ReasonSuspended,
		},
		{
			name:       "canceled",
			checker:    &stubChecker{rec: &subscription.SubscriptionRecord{Status: subscription.StatusCanceled}},
			wantReason: ReasonCanceled,
		},
		{
			name:       "expired",
			checker:    &stubChecker{rec: &subscription.SubscriptionRecord{Status: subscription.StatusExpired}},
			wantReason: ReasonExpired,
		},
		{
			name:       "trial lapsed before reconciliation",
			checker:    &stubChecker{rec: &subscription.SubscriptionRecord{Status: subscription.StatusTrialing}},
			wantReason: ReasonWindowLapsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewGate(tt.checker).Check(context.Background(), 1)

			assert.Equal(t, int64(1), d.RestaurantID)
			assert.Equal(t, tt.wantAllow, d.Allowed)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantUntil, d.Until)
			assert.Equal(t, 1, tt.checker.reads)
		})
	}
}

// flippingChecker changes the stored record after every read, the way a
// concurrent write would.
type flippingChecker struct {
	recs []*subscription.SubscriptionRecord
	now  time.Time
}

func (f *flippingChecker) Evaluate(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, bool, error) {
	rec := f.recs[0]
	f.recs = f.recs[1:]
	return rec, rec.EntitledAt(f.now), nil
}

func TestGate_Check_DecisionMatchesOneRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(48 * time.Hour)

	checker := &flippingChecker{
		now: now,
		recs: []*subscription.SubscriptionRecord{
			{Status: subscription.StatusActive, CurrentPeriodEndAt: &end},
			{Status: subscription.StatusExpired},
		},
	}

	d := NewGate(checker).Check(context.Background(), 1)
	assert.True(t, d.Allowed)
	assert.Equal(t, subscription.StatusActive, d.Status)
	assert.Equal(t, &end, d.Until)
	assert.Equal(t, ReasonNone, d.Reason)
	assert.Len(t, checker.recs, 1)
}
