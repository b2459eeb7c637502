// internal/repository/postgres/payment_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"menupro-service/internal/domain/payment"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const paymentColumns = `
	id, restaurant_id, amount, currency, transaction_id, status,
	submitted_by, reviewed_by, reviewed_at, note, created_at`

type PaymentRepository struct {
	db *DB
}

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create stores a new PENDING payment. A reused transaction id is a conflict.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.ManualPayment) error {
	query := `
		INSERT INTO manual_payments (restaurant_id, amount, currency, transaction_id, status, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		p.RestaurantID, p.Amount, p.Currency, p.TransactionID, p.Status, p.SubmittedBy,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("transaction id already submitted: %w", xerrors.ErrConflict)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// FindByID retrieves a payment by ID
func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*payment.ManualPayment, error) {
	query := `SELECT ` + paymentColumns + ` FROM manual_payments WHERE id = $1`

	p, err := scanPayment(r.db.Pool().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment: %w", err)
	}
	return p, nil
}

// List returns payments matching the filters, newest first
func (r *PaymentRepository) List(ctx context.Context, filters *payment.PaymentListFilters) ([]payment.ManualPayment, int64, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argPos := 1

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.RestaurantID != nil {
		conditions = append(conditions, fmt.Sprintf("restaurant_id = $%d", argPos))
		args = append(args, *filters.RestaurantID)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM manual_payments WHERE %s", whereClause)
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s
		FROM manual_payments
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, paymentColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []payment.ManualPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, *p)
	}

	return payments, total, rows.Err()
}

// Review moves a PENDING payment to a final status. Only one reviewer can win:
// a payment that is no longer PENDING yields ErrConflict.
func (r *PaymentRepository) Review(ctx context.Context, id int64, status payment.Status, reviewedBy int64, note string) (*payment.ManualPayment, error) {
	query := `
		UPDATE manual_payments
		SET status = $2, reviewed_by = $3, reviewed_at = NOW(), note = NULLIF($4, '')
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + paymentColumns

	p, err := scanPayment(r.db.Pool().QueryRow(ctx, query, id, status, reviewedBy, note))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("payment already reviewed: %w", xerrors.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to review payment: %w", err)
	}
	return p, nil
}

// Reopen returns an APPROVED payment to PENDING when its grant could not be applied.
func (r *PaymentRepository) Reopen(ctx context.Context, id int64) error {
	_, err := r.db.Pool().Exec(ctx, `
		UPDATE manual_payments
		SET status = 'PENDING', reviewed_by = NULL, reviewed_at = NULL
		WHERE id = $1 AND status = 'APPROVED'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reopen payment: %w", err)
	}
	return nil
}

func scanPayment(row pgx.Row) (*payment.ManualPayment, error) {
	var p payment.ManualPayment
	err := row.Scan(
		&p.ID, &p.RestaurantID, &p.Amount, &p.Currency, &p.TransactionID, &p.Status,
		&p.SubmittedBy, &p.ReviewedBy, &p.ReviewedAt, &p.Note, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
