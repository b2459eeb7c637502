// internal/handlers/subscription/subscription_handler.go
package subscription

import (
	"context"
	"net/http"
	"strconv"

	"menupro-service/internal/domain/subscription"
	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const ownerEventLimit = 20

// Engine is the subscription engine surface the HTTP layer drives.
type Engine interface {
	EnsureSubscription(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error)
	StartTrial(ctx context.Context, restaurantID int64) (*subscription.SubscriptionRecord, error)
	GrantPaidDays(ctx context.Context, restaurantID int64, in subscription.GrantInput) (*subscription.SubscriptionRecord, error)
	ForceExpireSubscription(ctx context.Context, restaurantID int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error)
	Suspend(ctx context.Context, restaurantID int64, reason string, actorID int64) (*subscription.SubscriptionRecord, error)
	Unsuspend(ctx context.Context, restaurantID int64, actorID int64) (*subscription.SubscriptionRecord, error)
	GetDetail(ctx context.Context, restaurantID int64, eventLimit int) (*subscription.SubscriptionDetailResponse, error)
}

// ReconcileTrigger runs the daily checks on demand.
type ReconcileTrigger interface {
	Trigger(ctx context.Context, force bool) (*subscription.ReconcileReport, error)
}

type SubscriptionHandler struct {
	engine    Engine
	reconcile ReconcileTrigger
}

func NewSubscriptionHandler(engine Engine, reconcile ReconcileTrigger) *SubscriptionHandler {
	return &SubscriptionHandler{
		engine:    engine,
		reconcile: reconcile,
	}
}

// ========== Owner Endpoints ==========

// GetSubscription returns the caller's restaurant subscription, creating the BASIC record on first access
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	restaurantID, ok := middleware.GetRestaurantID(c)
	if !ok {
		response.ValidationError(c, "invalid restaurant id", nil)
		return
	}

	if _, err := h.engine.EnsureSubscription(c.Request.Context(), restaurantID); err != nil {
		response.FromError(c, "failed to load subscription", err)
		return
	}

	result, err := h.engine.GetDetail(c.Request.Context(), restaurantID, ownerEventLimit)
	if err != nil {
		response.FromError(c, "failed to load subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", result)
}

func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	restaurantID, ok := middleware.GetRestaurantID(c)
	if !ok {
		response.ValidationError(c, "invalid restaurant id", nil)
		return
	}

	result, err := h.engine.StartTrial(c.Request.Context(), restaurantID)
	if err != nil {
		response.FromError(c, "failed to start trial", err)
		return
	}

	response.Success(c, http.StatusOK, "trial started", result)
}

// ========== Admin Endpoints ==========

// AdminGetSubscription returns the record with its full recent history
func (h *SubscriptionHandler) AdminGetSubscription(c *gin.Context) {
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("events", "0"))
	result, err := h.engine.GetDetail(c.Request.Context(), restaurantID, limit)
	if err != nil {
		response.FromError(c, "failed to load subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", result)
}

func (h *SubscriptionHandler) GrantPaidDays(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	var req subscription.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.engine.GrantPaidDays(c.Request.Context(), restaurantID, subscription.GrantInput{
		Days:      req.Days,
		GrantedBy: strconv.FormatInt(adminID, 10),
		Note:      req.Note,
		Source:    subscription.GrantSourceAdmin,
	})
	if err != nil {
		response.FromError(c, "failed to grant paid days", err)
		return
	}

	response.Success(c, http.StatusOK, "paid days granted", result)
}

func (h *SubscriptionHandler) ForceExpire(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	var req subscription.ForceExpireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.engine.ForceExpireSubscription(c.Request.Context(), restaurantID, req.Reason, adminID)
	if err != nil {
		response.FromError(c, "failed to expire subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription expired", result)
}

func (h *SubscriptionHandler) Suspend(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	var req subscription.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.engine.Suspend(c.Request.Context(), restaurantID, req.Reason, adminID)
	if err != nil {
		response.FromError(c, "failed to suspend subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription suspended", result)
}

func (h *SubscriptionHandler) Unsuspend(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	restaurantID, ok := restaurantParam(c)
	if !ok {
		return
	}

	result, err := h.engine.Unsuspend(c.Request.Context(), restaurantID, adminID)
	if err != nil {
		response.FromError(c, "failed to unsuspend subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription unsuspended", result)
}

// RunDailyChecks forces a reconciliation pass, ignoring today's completion marker
func (h *SubscriptionHandler) RunDailyChecks(c *gin.Context) {
	report, err := h.reconcile.Trigger(c.Request.Context(), true)
	if err != nil {
		response.FromError(c, "daily checks failed", err)
		return
	}

	message := "daily checks completed"
	if report.Skipped {
		message = "daily checks already running"
	}
	response.Success(c, http.StatusOK, message, report)
}

func restaurantParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid restaurant id", err)
		return 0, false
	}
	return id, true
}
