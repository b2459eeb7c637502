// internal/repository/postgres/settings_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"menupro-service/internal/domain/settings"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// List returns every stored setting ordered by key
func (r *SettingsRepository) List(ctx context.Context) ([]settings.Setting, error) {
	query := `
		SELECT key, value, COALESCE(description, ''), updated_by, updated_at
		FROM system_settings
		ORDER BY key
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	items := []settings.Setting{}
	for rows.Next() {
		var s settings.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedBy, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		items = append(items, s)
	}

	return items, rows.Err()
}

// Get retrieves a single setting by key
func (r *SettingsRepository) Get(ctx context.Context, key string) (*settings.Setting, error) {
	query := `
		SELECT key, value, COALESCE(description, ''), updated_by, updated_at
		FROM system_settings
		WHERE key = $1
	`

	var s settings.Setting
	err := r.db.Pool().QueryRow(ctx, query, key).Scan(&s.Key, &s.Value, &s.Description, &s.UpdatedBy, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return &s, nil
}

// Upsert creates or replaces a setting
func (r *SettingsRepository) Upsert(ctx context.Context, s *settings.Setting) error {
	query := `
		INSERT INTO system_settings (key, value, description, updated_by, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    description = COALESCE(EXCLUDED.description, system_settings.description),
		    updated_by = EXCLUDED.updated_by,
		    updated_at = NOW()
		RETURNING updated_at
	`

	if err := r.db.Pool().QueryRow(ctx, query, s.Key, s.Value, s.Description, s.UpdatedBy).Scan(&s.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert setting: %w", err)
	}
	return nil
}
