// internal/domain/subscription/dto.go
package subscription

import "time"

type GrantRequest struct {
	Days int    `json:"days"`
	Note string `json:"note"`
}

type ForceExpireRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

type SuspendRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// GrantSource tags who initiated a paid-days grant.
type GrantSource string

const (
	GrantSourceAdmin   GrantSource = "ADMIN"
	GrantSourcePayment GrantSource = "PAYMENT"
)

// GrantInput carries a paid-days grant through the engine.
type GrantInput struct {
	Days      int
	GrantedBy string
	Note      string
	Source    GrantSource
	Metadata  map[string]interface{}
}

// ApprovedPayment is what the payment review flow hands to the engine once a payment is verified.
type ApprovedPayment struct {
	PaymentID     int64
	RestaurantID  int64
	Amount        float64
	Currency      string
	TransactionID string
	ApprovedBy    int64
}

type SubscriptionDetailResponse struct {
	Subscription *SubscriptionRecord `json:"subscription"`
	Events       []SubscriptionEvent `json:"events"`
	Entitled     bool                `json:"entitled"`
	CheckedAt    time.Time           `json:"checked_at"`
}

// ReconcileReport summarizes one daily reconciliation pass.
type ReconcileReport struct {
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Processed    int           `json:"processed"`
	Transitioned int           `json:"transitioned"`
	Healed       int           `json:"healed"`
	Failed       int           `json:"failed"`
	Skipped      bool          `json:"skipped"`
}
