// internal/repository/postgres/restaurant_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"menupro-service/internal/domain/restaurant"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type RestaurantRepository struct {
	db *DB
}

func NewRestaurantRepository(db *DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

// FindByID retrieves a restaurant by ID
func (r *RestaurantRepository) FindByID(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	query := `
		SELECT id, owner_identity_id, name, current_plan, created_at, updated_at
		FROM restaurants
		WHERE id = $1
	`

	var rest restaurant.Restaurant
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&rest.ID, &rest.OwnerIdentityID, &rest.Name, &rest.CurrentPlan, &rest.CreatedAt, &rest.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.New(xerrors.CodeRestaurantNotFound, id, "restaurant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}

	return &rest, nil
}
