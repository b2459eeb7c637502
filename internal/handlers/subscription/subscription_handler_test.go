package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"menupro-service/internal/domain/subscription"
	xerrors "menupro-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEngine struct {
	err     error
	grants  []subscription.GrantInput
	ensured []int64
	actor   int64
	reason  string
}

func (s *stubEngine) record(id int64, status subscription.Status) (*subscription.SubscriptionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &subscription.SubscriptionRecord{ID: "sub-1", RestaurantID: id, Status: status}, nil
}

func (s *stubEngine) EnsureSubscription(ctx context.Context, id int64) (*subscription.SubscriptionRecord, error) {
	s.ensured = append(s.ensured, id)
	return s.record(id, subscription.StatusExpired)
}

func (s *stubEngine) StartTrial(ctx context.Context, id int64) (*subscription.SubscriptionRecord, error) {
	return s.record(id, subscription.StatusTrialing)
}

func (s *stubEngine) GrantPaidDays(ctx context.Context, id int64, in subscription.GrantInput) (*subscription.SubscriptionRecord, error) {
	s.grants = append(s.grants, in)
	return s.record(id, subscription.StatusActive)
}

func (s *stubEngine) ForceExpireSubscription(ctx context.Context, id int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error) {
	s.actor, s.reason = actorID, reason
	return s.record(id, subscription.StatusExpired)
}

func (s *stubEngine) Suspend(ctx context.Context, id int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error) {
	s.actor, s.reason = actorID, reason
	return s.record(id, subscription.StatusSuspended)
}

func (s *stubEngine) Unsuspend(ctx context.Context, id int64, actorID int64) (*subscription.SubscriptionRecord, error) {
	s.actor = actorID
	return s.record(id, subscription.StatusActive)
}

func (s *stubEngine) GetDetail(ctx context.Context, id int64, limit int) (*subscription.SubscriptionDetailResponse, error) {
	rec, err := s.record(id, subscription.StatusActive)
	if err != nil {
		return nil, err
	}
	return &subscription.SubscriptionDetailResponse{Subscription: rec, Entitled: true}, nil
}

type stubTrigger struct {
	report *subscription.ReconcileReport
	err    error
	forced bool
}

func (s *stubTrigger) Trigger(ctx context.Context, force bool) (*subscription.ReconcileReport, error) {
	s.forced = force
	return s.report, s.err
}

func newRouter(engine *stubEngine, trigger *stubTrigger) *gin.Engine {
	h := NewSubscriptionHandler(engine, trigger)
	r := gin.New()
	asAdmin := func(c *gin.Context) {
		c.Set("identity_id", int64(1))
		c.Set("roles", []string{"admin"})
	}
	asOwner := func(c *gin.Context) {
		c.Set("identity_id", int64(500))
		c.Set("restaurant_id", int64(10))
	}

	owner := r.Group("/restaurants/:id", asOwner)
	owner.GET("/subscription", h.GetSubscription)
	owner.POST("/subscription/trial", h.StartTrial)

	admin := r.Group("/admin", asAdmin)
	admin.GET("/restaurants/:id/subscription", h.AdminGetSubscription)
	admin.POST("/restaurants/:id/subscription/grant", h.GrantPaidDays)
	admin.POST("/restaurants/:id/subscription/force-expire", h.ForceExpire)
	admin.POST("/restaurants/:id/subscription/suspend", h.Suspend)
	admin.POST("/restaurants/:id/subscription/unsuspend", h.Unsuspend)
	admin.POST("/subscriptions/reconcile", h.RunDailyChecks)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestOwnerGetSubscription_EnsuresRecord(t *testing.T) {
	engine := &stubEngine{}
	w := do(newRouter(engine, &stubTrigger{}), http.MethodGet, "/restaurants/10/subscription", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int64{10}, engine.ensured)
	assert.True(t, decode(t, w).Success)
}

func TestStartTrial_MapsCodedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"trial used", xerrors.New(xerrors.CodeInvalidStateTransition, 10, "trial already used"), http.StatusConflict, "INVALID_STATE_TRANSITION"},
		{"trials disabled", xerrors.New(xerrors.CodeInvalidParameters, 10, "trials disabled"), http.StatusBadRequest, "INVALID_PARAMETERS"},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, "SYSTEM_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&stubEngine{err: tt.err}, &stubTrigger{}), http.MethodPost, "/restaurants/10/subscription/trial", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Code)
		})
	}
}

func TestGrantPaidDays(t *testing.T) {
	engine := &stubEngine{}
	r := newRouter(engine, &stubTrigger{})

	w := do(r, http.MethodPost, "/admin/restaurants/10/subscription/grant", `{"days":30,"note":"promo"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, engine.grants, 1)
	assert.Equal(t, subscription.GrantInput{Days: 30, GrantedBy: "1", Note: "promo", Source: subscription.GrantSourceAdmin}, engine.grants[0])

	w = do(r, http.MethodPost, "/admin/restaurants/abc/subscription/grant", `{"days":30}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/restaurants/10/subscription/grant", `{"days":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForceExpire_RequiresReason(t *testing.T) {
	engine := &stubEngine{}
	r := newRouter(engine, &stubTrigger{})

	w := do(r, http.MethodPost, "/admin/restaurants/10/subscription/force-expire", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/admin/restaurants/10/subscription/force-expire", `{"reason":"chargeback"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), engine.actor)
	assert.Equal(t, "chargeback", engine.reason)
}

func TestSuspendUnsuspend(t *testing.T) {
	engine := &stubEngine{}
	r := newRouter(engine, &stubTrigger{})

	w := do(r, http.MethodPost, "/admin/restaurants/10/subscription/suspend", `{"reason":"fraud review"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fraud review", engine.reason)

	engine.err = xerrors.New(xerrors.CodeNotSuspended, 10, "not suspended")
	w = do(r, http.MethodPost, "/admin/restaurants/10/subscription/unsuspend", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "NOT_SUSPENDED", decode(t, w).Code)
}

func TestAdminGetSubscription_NotFound(t *testing.T) {
	engine := &stubEngine{err: xerrors.New(xerrors.CodeSubscriptionNotFound, 10, "no record")}
	w := do(newRouter(engine, &stubTrigger{}), http.MethodGet, "/admin/restaurants/10/subscription", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", decode(t, w).Code)
}

func TestRunDailyChecks_Forces(t *testing.T) {
	trigger := &stubTrigger{report: &subscription.ReconcileReport{Processed: 4, Transitioned: 1}}
	w := do(newRouter(&stubEngine{}, trigger), http.MethodPost, "/admin/subscriptions/reconcile", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, trigger.forced)

	var report subscription.ReconcileReport
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	assert.Equal(t, 4, report.Processed)

	trigger.err = errors.New("lease store down")
	w = do(newRouter(&stubEngine{}, trigger), http.MethodPost, "/admin/subscriptions/reconcile", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
