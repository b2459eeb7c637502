// internal/domain/subscription/event.go
package subscription

import "time"

type EventType string

const (
	EventCreated             EventType = "CREATED"
	EventTrialStarted        EventType = "TRIAL_STARTED"
	EventTrialGraceStarted   EventType = "TRIAL_GRACE_STARTED"
	EventTrialExpired        EventType = "TRIAL_EXPIRED"
	EventPeriodGraceStarted  EventType = "PERIOD_GRACE_STARTED"
	EventSubscriptionExpired EventType = "SUBSCRIPTION_EXPIRED"
	EventAdminGrant          EventType = "ADMIN_GRANT"
	EventManualPaymentGrant  EventType = "MANUAL_PAYMENT_GRANT"
	EventForceExpired        EventType = "FORCE_EXPIRED"
	EventSuspended           EventType = "SUSPENDED"
	EventUnsuspended         EventType = "UNSUSPENDED"
	EventPlanFlagRepaired    EventType = "PLAN_FLAG_REPAIRED"
)

// SubscriptionEvent is an append-only audit row. It is never updated or deleted.
type SubscriptionEvent struct {
	ID             string                 `json:"id" db:"id"`
	SubscriptionID string                 `json:"subscription_id" db:"subscription_id"`
	EventType      EventType              `json:"event_type" db:"event_type"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

func NewEvent(id string, rec *SubscriptionRecord, eventType EventType, metadata map[string]interface{}, now time.Time) *SubscriptionEvent {
	return &SubscriptionEvent{
		ID:             id,
		SubscriptionID: rec.ID,
		EventType:      eventType,
		Metadata:       metadata,
		CreatedAt:      now,
	}
}
