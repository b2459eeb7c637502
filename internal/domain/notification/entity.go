// internal/domain/notification/entity.go
package notification

import (
	"database/sql"
	"time"
)

type NotificationType string

const (
	TypeSystem NotificationType = "system"
	TypeAlert  NotificationType = "alert"
	TypeInfo   NotificationType = "info"
)

// Kind identifies the entitlement event a notification is about.
type Kind string

const (
	KindTrialStarted          Kind = "TRIAL_STARTED"
	KindTrialEndingSoon       Kind = "TRIAL_ENDING_SOON"
	KindTrialGraceStarted     Kind = "TRIAL_GRACE_STARTED"
	KindTrialExpired          Kind = "TRIAL_EXPIRED"
	KindPeriodEndingSoon      Kind = "PERIOD_ENDING_SOON"
	KindPeriodGraceStarted    Kind = "PERIOD_GRACE_STARTED"
	KindSubscriptionExpired   Kind = "SUBSCRIPTION_EXPIRED"
	KindSubscriptionExtended  Kind = "SUBSCRIPTION_EXTENDED"
	KindSubscriptionForceEnd  Kind = "SUBSCRIPTION_FORCE_EXPIRED"
	KindSubscriptionSuspended Kind = "SUBSCRIPTION_SUSPENDED"
)

// TypeFor maps an entitlement kind to the display type of the notification.
func TypeFor(kind Kind) NotificationType {
	switch kind {
	case KindTrialExpired, KindSubscriptionExpired, KindSubscriptionForceEnd, KindSubscriptionSuspended:
		return TypeAlert
	case KindTrialEndingSoon, KindPeriodEndingSoon, KindTrialGraceStarted, KindPeriodGraceStarted:
		return TypeSystem
	default:
		return TypeInfo
	}
}

type Notification struct {
	ID           int64                  `json:"id" db:"id"`
	IdentityID   int64                  `json:"identity_id" db:"identity_id"`
	RestaurantID *int64                 `json:"restaurant_id,omitempty" db:"restaurant_id"`
	Kind         Kind                   `json:"kind" db:"kind"`
	Title        string                 `json:"title" db:"title"`
	Message      string                 `json:"message" db:"message"`
	Type         NotificationType       `json:"type" db:"type"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	IsRead       bool                   `json:"is_read" db:"is_read"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
	ReadAt       sql.NullTime           `json:"read_at,omitempty" db:"read_at"`
}

// DTOs

type NotificationListFilters struct {
	IsRead   *bool `form:"is_read"`
	Kind     *Kind `form:"kind"`
	Page     int   `form:"page"`
	PageSize int   `form:"page_size"`
}

type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}
