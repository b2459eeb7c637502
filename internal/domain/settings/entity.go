// internal/domain/settings/entity.go
package settings

import (
	"context"
	"time"
)

type ValueKind string

const (
	KindBool ValueKind = "bool"
	KindInt  ValueKind = "int"
)

// Setting is one row of the system_settings table.
type Setting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description,omitempty" db:"description"`
	UpdatedBy   *int64    `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Subscription policy keys
const (
	KeyTrialEnabled              = "subscription.trial.enabled"
	KeyTrialDays                 = "subscription.trial.days"
	KeyTrialOncePerTenant        = "subscription.trial.once_per_tenant"
	KeyDefaultPaidDays           = "subscription.paid.default_days"
	KeyGraceDays                 = "subscription.grace.days"
	KeyNotifyDaysBeforeTrialEnd  = "subscription.notify.days_before_trial_end"
	KeyNotifyDaysBeforePeriodEnd = "subscription.notify.days_before_period_end"
)

// Kinds maps every known key to its value type.
var Kinds = map[string]ValueKind{
	KeyTrialEnabled:              KindBool,
	KeyTrialDays:                 KindInt,
	KeyTrialOncePerTenant:        KindBool,
	KeyDefaultPaidDays:           KindInt,
	KeyGraceDays:                 KindInt,
	KeyNotifyDaysBeforeTrialEnd:  KindInt,
	KeyNotifyDaysBeforePeriodEnd: KindInt,
}

// Policy is the resolved set of subscription thresholds.
type Policy struct {
	TrialEnabled              bool `json:"trial_enabled"`
	TrialDays                 int  `json:"trial_days"`
	TrialOncePerTenant        bool `json:"trial_once_per_tenant"`
	DefaultPaidDays           int  `json:"default_paid_days"`
	GraceDays                 int  `json:"grace_days"`
	NotifyDaysBeforeTrialEnd  int  `json:"notify_days_before_trial_end"`
	NotifyDaysBeforePeriodEnd int  `json:"notify_days_before_period_end"`
}

// DefaultPolicy is used when neither the database nor the environment says otherwise.
func DefaultPolicy() Policy {
	return Policy{
		TrialEnabled:              true,
		TrialDays:                 14,
		TrialOncePerTenant:        true,
		DefaultPaidDays:           30,
		GraceDays:                 3,
		NotifyDaysBeforeTrialEnd:  3,
		NotifyDaysBeforePeriodEnd: 7,
	}
}

type Repository interface {
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, s *Setting) error
}
