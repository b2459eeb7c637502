// internal/service/subscription/query.go
package subscription

import (
	"context"

	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const defaultEventLimit = 50

// IsValidProSubscription answers whether the restaurant may use PRO features
// right now. It never writes and never errors: a missing record or a storage
// failure both read as false.
func (e *Engine) IsValidProSubscription(ctx context.Context, restaurantID int64) bool {
	rec, err := e.store.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		if !xerrors.Is(err, xerrors.ErrNotFound) {
			e.logger.Warn("entitlement lookup failed",
				zap.Int64("restaurant_id", restaurantID),
				zap.Error(err),
			)
		}
		return false
	}
	return rec.EntitledAt(e.now())
}

// GetSubscription reads the record without creating it.
func (e *Engine) GetSubscription(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	rec, err := e.store.FindByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, e.classify(restaurantID, "get subscription", err)
	}
	return rec, nil
}

// Evaluate reads the record once and reports whether it grants PRO now, so the
// answer and the record it came from always agree.
func (e *Engine) Evaluate(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, bool, error) {
	rec, err := e.GetSubscription(ctx, restaurantID)
	if err != nil {
		return nil, false, err
	}
	return rec, rec.EntitledAt(e.now()), nil
}

// GetDetail returns the record with its newest events.
func (e *Engine) GetDetail(ctx context.Context, restaurantID int64, eventLimit int) (*subscription.SubscriptionDetailResponse, error) {
	rec, err := e.GetSubscription(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	if eventLimit <= 0 {
		eventLimit = defaultEventLimit
	}
	events, err := e.store.ListEvents(ctx, rec.ID, eventLimit)
	if err != nil {
		return nil, e.classify(restaurantID, "list subscription events", err)
	}

	now := e.now()
	return &subscription.SubscriptionDetailResponse{
		Subscription: rec,
		Events:       events,
		Entitled:     rec.EntitledAt(now),
		CheckedAt:    now,
	}, nil
}
