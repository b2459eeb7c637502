// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `
	id, restaurant_id, plan, status,
	trial_start_at, trial_end_at,
	current_period_start_at, current_period_end_at,
	grace_end_at, cancel_at_period_end, canceled_at,
	created_at, updated_at`

// SubscriptionRepository implements subscription.Store on top of the
// restaurant_subscriptions and subscription_events tables.
type SubscriptionRepository struct {
	db *DB
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

var _ subscription.Store = (*SubscriptionRepository)(nil)

// FindByRestaurant reads a record without taking any lock.
func (r *SubscriptionRepository) FindByRestaurant(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM restaurant_subscriptions WHERE restaurant_id = $1`

	rec, err := scanSubscription(r.db.Pool().QueryRow(ctx, query, restaurantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return rec, nil
}

// ListEvents returns the newest events first.
func (r *SubscriptionRepository) ListEvents(ctx context.Context, subscriptionID string, limit int) ([]subscription.SubscriptionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subscription_id, event_type, metadata, created_at
		FROM subscription_events
		WHERE subscription_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscription events: %w", err)
	}
	defer rows.Close()

	events := []subscription.SubscriptionEvent{}
	for rows.Next() {
		var ev subscription.SubscriptionEvent
		var metadataJSON []byte

		if err := rows.Scan(&ev.ID, &ev.SubscriptionID, &ev.EventType, &metadataJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription event: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// ListRestaurantIDs pages by restaurant id so the daily pass never holds a long cursor.
func (r *SubscriptionRepository) ListRestaurantIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT restaurant_id
		FROM restaurant_subscriptions
		WHERE restaurant_id > $1
		ORDER BY restaurant_id
		LIMIT $2
	`

	rows, err := r.db.Pool().Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribed restaurants: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *SubscriptionRepository) WithinTx(ctx context.Context, fn func(tx subscription.Tx) error) error {
	return r.db.WithinTx(ctx, func(tx pgx.Tx) error {
		return fn(&subscriptionTx{tx: tx})
	})
}

type subscriptionTx struct {
	tx pgx.Tx
}

// LockRestaurant serializes every write for one restaurant on its row lock.
func (t *subscriptionTx) LockRestaurant(ctx context.Context, restaurantID int64) (subscription.Plan, error) {
	var plan subscription.Plan
	err := t.tx.QueryRow(ctx,
		`SELECT current_plan FROM restaurants WHERE id = $1 FOR UPDATE`,
		restaurantID,
	).Scan(&plan)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", xerrors.New(xerrors.CodeRestaurantNotFound, restaurantID, "restaurant not found")
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock restaurant: %w", err)
	}
	return plan, nil
}

func (t *subscriptionTx) LockByRestaurant(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM restaurant_subscriptions WHERE restaurant_id = $1 FOR UPDATE`

	rec, err := scanSubscription(t.tx.QueryRow(ctx, query, restaurantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock subscription: %w", err)
	}
	return rec, nil
}

// Insert relies on the unique restaurant_id constraint; a lost race reports false.
func (t *subscriptionTx) Insert(ctx context.Context, rec *subscription.SubscriptionRecord) (bool, error) {
	query := `
		INSERT INTO restaurant_subscriptions (
			id, restaurant_id, plan, status,
			trial_start_at, trial_end_at,
			current_period_start_at, current_period_end_at,
			grace_end_at, cancel_at_period_end, canceled_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (restaurant_id) DO NOTHING
	`

	tag, err := t.tx.Exec(ctx, query,
		rec.ID, rec.RestaurantID, rec.Plan, rec.Status,
		rec.TrialStartAt, rec.TrialEndAt,
		rec.CurrentPeriodStartAt, rec.CurrentPeriodEndAt,
		rec.GraceEndAt, rec.CancelAtPeriodEnd, rec.CanceledAt,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create subscription: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (t *subscriptionTx) Update(ctx context.Context, rec *subscription.SubscriptionRecord) error {
	query := `
		UPDATE restaurant_subscriptions
		SET plan = $2, status = $3,
		    trial_start_at = $4, trial_end_at = $5,
		    current_period_start_at = $6, current_period_end_at = $7,
		    grace_end_at = $8, cancel_at_period_end = $9, canceled_at = $10,
		    updated_at = $11
		WHERE id = $1
	`

	tag, err := t.tx.Exec(ctx, query,
		rec.ID, rec.Plan, rec.Status,
		rec.TrialStartAt, rec.TrialEndAt,
		rec.CurrentPeriodStartAt, rec.CurrentPeriodEndAt,
		rec.GraceEndAt, rec.CancelAtPeriodEnd, rec.CanceledAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (t *subscriptionTx) AppendEvent(ctx context.Context, ev *subscription.SubscriptionEvent) error {
	metadataJSON, err := encodeEventMetadata(ev.Metadata)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO subscription_events (id, subscription_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.ID, ev.SubscriptionID, ev.EventType, metadataJSON, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append subscription event: %w", err)
	}

	return nil
}

// encodeEventMetadata never yields nil: pgx sends a nil slice as NULL, which
// the NOT NULL metadata column rejects.
func encodeEventMetadata(metadata map[string]interface{}) ([]byte, error) {
	if len(metadata) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

func (t *subscriptionTx) SetCurrentPlan(ctx context.Context, restaurantID int64, plan subscription.Plan) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE restaurants SET current_plan = $2, updated_at = NOW() WHERE id = $1`,
		restaurantID, plan,
	)
	if err != nil {
		return fmt.Errorf("failed to update restaurant plan: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*subscription.SubscriptionRecord, error) {
	var rec subscription.SubscriptionRecord
	err := row.Scan(
		&rec.ID, &rec.RestaurantID, &rec.Plan, &rec.Status,
		&rec.TrialStartAt, &rec.TrialEndAt,
		&rec.CurrentPeriodStartAt, &rec.CurrentPeriodEndAt,
		&rec.GraceEndAt, &rec.CancelAtPeriodEnd, &rec.CanceledAt,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
