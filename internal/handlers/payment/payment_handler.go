// internal/handlers/payment/payment_handler.go
package payment

import (
	"context"
	"net/http"
	"strconv"

	"menupro-service/internal/domain/payment"
	"menupro-service/internal/domain/subscription"
	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Service interface {
	Submit(ctx context.Context, restaurantID, submittedBy int64, req *payment.SubmitPaymentRequest) (*payment.ManualPayment, error)
	Approve(ctx context.Context, id, adminID int64, note string) (*payment.ManualPayment, *subscription.SubscriptionRecord, error)
	Reject(ctx context.Context, id, adminID int64, note string) (*payment.ManualPayment, error)
	List(ctx context.Context, filters *payment.PaymentListFilters) (*payment.PaymentListResponse, error)
}

type PaymentHandler struct {
	paymentService Service
}

func NewPaymentHandler(paymentService Service) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Submit records a manual payment claim for the owner's restaurant
func (h *PaymentHandler) Submit(c *gin.Context) {
	identityID := middleware.MustGetIdentityID(c)
	restaurantID, ok := middleware.GetRestaurantID(c)
	if !ok {
		response.ValidationError(c, "invalid restaurant id", nil)
		return
	}

	var req payment.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.paymentService.Submit(c.Request.Context(), restaurantID, identityID, &req)
	if err != nil {
		response.FromError(c, "failed to submit payment", err)
		return
	}

	response.Success(c, http.StatusCreated, "payment submitted for review", result)
}

// List returns payments for review, optionally filtered by status
func (h *PaymentHandler) List(c *gin.Context) {
	var filters payment.PaymentListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query parameters", err)
		return
	}

	result, err := h.paymentService.List(c.Request.Context(), &filters)
	if err != nil {
		response.FromError(c, "failed to list payments", err)
		return
	}

	response.Success(c, http.StatusOK, "payments retrieved", result)
}

func (h *PaymentHandler) Approve(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	id, req, ok := bindReview(c)
	if !ok {
		return
	}

	p, rec, err := h.paymentService.Approve(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		response.FromError(c, "failed to approve payment", err)
		return
	}

	response.Success(c, http.StatusOK, "payment approved", gin.H{
		"payment":      p,
		"subscription": rec,
	})
}

func (h *PaymentHandler) Reject(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)
	id, req, ok := bindReview(c)
	if !ok {
		return
	}

	p, err := h.paymentService.Reject(c.Request.Context(), id, adminID, req.Note)
	if err != nil {
		response.FromError(c, "failed to reject payment", err)
		return
	}

	response.Success(c, http.StatusOK, "payment rejected", p)
}

// bindReview accepts an empty body; the note is optional.
func bindReview(c *gin.Context) (int64, payment.ReviewPaymentRequest, bool) {
	var req payment.ReviewPaymentRequest

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid payment id", err)
		return 0, req, false
	}

	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ValidationError(c, "invalid request", err)
			return 0, req, false
		}
	}
	return id, req, true
}
