// internal/domain/restaurant/entity.go
package restaurant

import (
	"context"
	"time"
)

type Restaurant struct {
	ID              int64     `json:"id" db:"id"`
	OwnerIdentityID int64     `json:"owner_identity_id" db:"owner_identity_id"`
	Name            string    `json:"name" db:"name"`
	CurrentPlan     string    `json:"current_plan" db:"current_plan"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsOwnedBy reports whether the identity owns the restaurant.
func (r *Restaurant) IsOwnedBy(identityID int64) bool {
	return r.OwnerIdentityID == identityID
}

type Repository interface {
	FindByID(ctx context.Context, id int64) (*Restaurant, error)
}
