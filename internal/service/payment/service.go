// internal/service/payment/service.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"menupro-service/internal/domain/payment"
	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *payment.ManualPayment) error
	FindByID(ctx context.Context, id int64) (*payment.ManualPayment, error)
	List(ctx context.Context, filters *payment.PaymentListFilters) ([]payment.ManualPayment, int64, error)
	Review(ctx context.Context, id int64, status payment.Status, reviewedBy int64, note string) (*payment.ManualPayment, error)
	Reopen(ctx context.Context, id int64) error
}

// Approver grants the paid period for an approved payment.
type Approver interface {
	OnManualPaymentApproved(ctx context.Context, p subscription.ApprovedPayment) (*subscription.SubscriptionRecord, error)
}

type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, int64, error)
}

type PaymentService struct {
	repo     Repository
	approver Approver
	limiter  Limiter
	logger   *zap.Logger
}

func NewPaymentService(repo Repository, approver Approver, limiter Limiter, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		repo:     repo,
		approver: approver,
		limiter:  limiter,
		logger:   logger,
	}
}

// Submit records a pending payment claim for a restaurant.
func (s *PaymentService) Submit(ctx context.Context, restaurantID, submittedBy int64, req *payment.SubmitPaymentRequest) (*payment.ManualPayment, error) {
	if s.limiter != nil {
		ok, _, err := s.limiter.Allow(ctx, strconv.FormatInt(restaurantID, 10))
		if err != nil {
			return nil, fmt.Errorf("failed to check submission rate: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("payment submissions for restaurant %d: %w", restaurantID, xerrors.ErrRateLimited)
		}
	}

	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" || req.Amount <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidParameters, restaurantID, "amount and transaction id are required")
	}

	p := &payment.ManualPayment{
		RestaurantID:  restaurantID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		TransactionID: transactionID,
		Status:        payment.StatusPending,
		SubmittedBy:   submittedBy,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("manual payment submitted",
		zap.Int64("payment_id", p.ID),
		zap.Int64("restaurant_id", restaurantID),
		zap.String("transaction_id", transactionID),
	)
	return p, nil
}

// Approve claims the pending payment and grants the paid period. If the grant
// fails the payment goes back to PENDING so it can be approved again.
func (s *PaymentService) Approve(ctx context.Context, id, adminID int64, note string) (*payment.ManualPayment, *subscription.SubscriptionRecord, error) {
	p, err := s.review(ctx, id, payment.StatusApproved, adminID, note)
	if err != nil {
		return nil, nil, err
	}

	rec, err := s.approver.OnManualPaymentApproved(ctx, subscription.ApprovedPayment{
		PaymentID:     p.ID,
		RestaurantID:  p.RestaurantID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		TransactionID: p.TransactionID,
		ApprovedBy:    adminID,
	})
	if err != nil {
		if reopenErr := s.repo.Reopen(context.WithoutCancel(ctx), p.ID); reopenErr != nil {
			s.logger.Error("failed to reopen payment after grant failure",
				zap.Int64("payment_id", p.ID),
				zap.Error(reopenErr),
			)
		}
		return nil, nil, err
	}

	s.logger.Info("manual payment approved",
		zap.Int64("payment_id", p.ID),
		zap.Int64("restaurant_id", p.RestaurantID),
		zap.Int64("approved_by", adminID),
	)
	return p, rec, nil
}

func (s *PaymentService) Reject(ctx context.Context, id, adminID int64, note string) (*payment.ManualPayment, error) {
	p, err := s.review(ctx, id, payment.StatusRejected, adminID, note)
	if err != nil {
		return nil, err
	}

	s.logger.Info("manual payment rejected",
		zap.Int64("payment_id", p.ID),
		zap.Int64("restaurant_id", p.RestaurantID),
		zap.Int64("rejected_by", adminID),
	)
	return p, nil
}

func (s *PaymentService) List(ctx context.Context, filters *payment.PaymentListFilters) (*payment.PaymentListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	payments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &payment.PaymentListResponse{
		Payments:   payments,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *PaymentService) review(ctx context.Context, id int64, status payment.Status, adminID int64, note string) (*payment.ManualPayment, error) {
	p, err := s.repo.Review(ctx, id, status, adminID, note)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, xerrors.ErrConflict) {
		return nil, &xerrors.Error{
			Code:    xerrors.CodeInvalidStateTransition,
			Message: fmt.Sprintf("payment %d is no longer pending", id),
			Err:     err,
		}
	}
	return nil, err
}
