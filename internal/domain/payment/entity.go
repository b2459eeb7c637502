// internal/domain/payment/entity.go
package payment

import (
	"time"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// ManualPayment is an out-of-band payment claim awaiting admin review.
type ManualPayment struct {
	ID            int64      `json:"id" db:"id"`
	RestaurantID  int64      `json:"restaurant_id" db:"restaurant_id"`
	Amount        float64    `json:"amount" db:"amount"`
	Currency      string     `json:"currency" db:"currency"`
	TransactionID string     `json:"transaction_id" db:"transaction_id"`
	Status        Status     `json:"status" db:"status"`
	SubmittedBy   int64      `json:"submitted_by" db:"submitted_by"`
	ReviewedBy    *int64     `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	Note          *string    `json:"note,omitempty" db:"note"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
