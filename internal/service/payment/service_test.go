package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"menupro-service/internal/domain/payment"
	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	rows    map[int64]*payment.ManualPayment
	nextID  int64
	reopens []int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]*payment.ManualPayment{}}
}

func (r *memRepo) Create(ctx context.Context, p *payment.ManualPayment) error {
	for _, existing := range r.rows {
		if existing.TransactionID == p.TransactionID {
			return xerrors.ErrConflict
		}
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	cp := *p
	r.rows[p.ID] = &cp
	return nil
}

func (r *memRepo) FindByID(ctx context.Context, id int64) (*payment.ManualPayment, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, filters *payment.PaymentListFilters) ([]payment.ManualPayment, int64, error) {
	out := []payment.ManualPayment{}
	for _, p := range r.rows {
		if filters.Status != nil && p.Status != *filters.Status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *memRepo) Review(ctx context.Context, id int64, status payment.Status, reviewedBy int64, note string) (*payment.ManualPayment, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if p.Status != payment.StatusPending {
		return nil, xerrors.ErrConflict
	}
	p.Status = status
	p.ReviewedBy = &reviewedBy
	cp := *p
	return &cp, nil
}

func (r *memRepo) Reopen(ctx context.Context, id int64) error {
	r.reopens = append(r.reopens, id)
	if p, ok := r.rows[id]; ok && p.Status == payment.StatusApproved {
		p.Status = payment.StatusPending
		p.ReviewedBy = nil
	}
	return nil
}

type stubApprover struct {
	calls []subscription.ApprovedPayment
	err   error
}

func (a *stubApprover) OnManualPaymentApproved(ctx context.Context, p subscription.ApprovedPayment) (*subscription.SubscriptionRecord, error) {
	a.calls = append(a.calls, p)
	if a.err != nil {
		return nil, a.err
	}
	return &subscription.SubscriptionRecord{RestaurantID: p.RestaurantID, Status: subscription.StatusActive}, nil
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (l stubLimiter) Allow(ctx context.Context, subject string) (bool, int64, error) {
	return l.allowed, 0, l.err
}

func submitReq(txID string) *payment.SubmitPaymentRequest {
	return &payment.SubmitPaymentRequest{Amount: 2500, Currency: "kes", TransactionID: txID}
}

func TestSubmit(t *testing.T) {
	repo := newMemRepo()
	svc := NewPaymentService(repo, &stubApprover{}, stubLimiter{allowed: true}, zap.NewNop())

	p, err := svc.Submit(context.Background(), 10, 500, submitReq(" QX12 "))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Equal(t, "KES", p.Currency)
	assert.Equal(t, "QX12", p.TransactionID)

	_, err = svc.Submit(context.Background(), 10, 500, submitReq("QX12"))
	assert.ErrorIs(t, err, xerrors.ErrConflict)

	_, err = svc.Submit(context.Background(), 10, 500, submitReq("   "))
	assert.Equal(t, xerrors.CodeInvalidParameters, xerrors.CodeOf(err))
}

func TestSubmit_RateLimited(t *testing.T) {
	svc := NewPaymentService(newMemRepo(), &stubApprover{}, stubLimiter{allowed: false}, zap.NewNop())
	_, err := svc.Submit(context.Background(), 10, 500, submitReq("QX1"))
	assert.ErrorIs(t, err, xerrors.ErrRateLimited)

	svc = NewPaymentService(newMemRepo(), &stubApprover{}, stubLimiter{err: errors.New("redis down")}, zap.NewNop())
	_, err = svc.Submit(context.Background(), 10, 500, submitReq("QX1"))
	assert.Error(t, err)
}

func TestApprove_GrantsOnce(t *testing.T) {
	repo := newMemRepo()
	approver := &stubApprover{}
	svc := NewPaymentService(repo, approver, nil, zap.NewNop())

	p, err := svc.Submit(context.Background(), 10, 500, submitReq("QX12"))
	require.NoError(t, err)

	approved, rec, err := svc.Approve(context.Background(), p.ID, 1, "checked statement")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusApproved, approved.Status)
	assert.Equal(t, subscription.StatusActive, rec.Status)
	require.Len(t, approver.calls, 1)
	assert.Equal(t, subscription.ApprovedPayment{
		PaymentID: p.ID, RestaurantID: 10, Amount: 2500, Currency: "KES", TransactionID: "QX12", ApprovedBy: 1,
	}, approver.calls[0])

	_, _, err = svc.Approve(context.Background(), p.ID, 1, "")
	assert.Equal(t, xerrors.CodeInvalidStateTransition, xerrors.CodeOf(err))
	assert.Len(t, approver.calls, 1, "a replayed approval never reaches the engine")
}

func TestApprove_ReopensWhenGrantFails(t *testing.T) {
	repo := newMemRepo()
	approver := &stubApprover{err: xerrors.New(xerrors.CodeInvalidStateTransition, 10, "suspended")}
	svc := NewPaymentService(repo, approver, nil, zap.NewNop())

	p, err := svc.Submit(context.Background(), 10, 500, submitReq("QX12"))
	require.NoError(t, err)

	_, _, err = svc.Approve(context.Background(), p.ID, 1, "")
	assert.Error(t, err)
	assert.Equal(t, []int64{p.ID}, repo.reopens)
	assert.Equal(t, payment.StatusPending, repo.rows[p.ID].Status)

	approver.err = nil
	_, _, err = svc.Approve(context.Background(), p.ID, 1, "")
	require.NoError(t, err)
	assert.Len(t, approver.calls, 2)
}

func TestApprove_Missing(t *testing.T) {
	svc := NewPaymentService(newMemRepo(), &stubApprover{}, nil, zap.NewNop())
	_, _, err := svc.Approve(context.Background(), 42, 1, "")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestReject(t *testing.T) {
	repo := newMemRepo()
	approver := &stubApprover{}
	svc := NewPaymentService(repo, approver, nil, zap.NewNop())

	p, err := svc.Submit(context.Background(), 10, 500, submitReq("QX12"))
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), p.ID, 1, "no such transfer")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRejected, rejected.Status)

	_, _, err = svc.Approve(context.Background(), p.ID, 1, "")
	assert.Equal(t, xerrors.CodeInvalidStateTransition, xerrors.CodeOf(err))
	assert.Empty(t, approver.calls)
}

func TestList_Paging(t *testing.T) {
	repo := newMemRepo()
	svc := NewPaymentService(repo, &stubApprover{}, nil, zap.NewNop())
	for _, tx := range []string{"a", "b", "c"} {
		_, err := svc.Submit(context.Background(), 10, 500, submitReq(tx))
		require.NoError(t, err)
	}

	pending := payment.StatusPending
	resp, err := svc.List(context.Background(), &payment.PaymentListFilters{Status: &pending, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.Page)
}
