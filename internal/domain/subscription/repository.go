// internal/domain/subscription/repository.go
package subscription

import (
	"context"
)

// Store persists subscription records and their event log.
// Lookups return xerrors.ErrNotFound when the row is absent.
type Store interface {
	// FindByRestaurant reads the record without locking.
	FindByRestaurant(ctx context.Context, restaurantID int64) (*SubscriptionRecord, error)
	ListEvents(ctx context.Context, subscriptionID string, limit int) ([]SubscriptionEvent, error)
	// ListRestaurantIDs pages through every restaurant that owns a record, ordered by id.
	ListRestaurantIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	// WithinTx runs fn in one transaction; any error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of the store, bound to a single transaction.
type Tx interface {
	// LockRestaurant takes the per-tenant row lock and returns the stored current_plan.
	LockRestaurant(ctx context.Context, restaurantID int64) (Plan, error)
	LockByRestaurant(ctx context.Context, restaurantID int64) (*SubscriptionRecord, error)
	// Insert reports false when a record for the restaurant already exists.
	Insert(ctx context.Context, rec *SubscriptionRecord) (bool, error)
	Update(ctx context.Context, rec *SubscriptionRecord) error
	AppendEvent(ctx context.Context, ev *SubscriptionEvent) error
	SetCurrentPlan(ctx context.Context, restaurantID int64, plan Plan) error
}
