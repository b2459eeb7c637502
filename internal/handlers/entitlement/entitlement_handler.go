// internal/handlers/entitlement/entitlement_handler.go
package entitlement

import (
	"context"
	"net/http"

	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/response"
	"menupro-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
)

type Gate interface {
	Check(ctx context.Context, restaurantID int64) entitlement.Decision
}

type EntitlementHandler struct {
	gate Gate
}

func NewEntitlementHandler(gate Gate) *EntitlementHandler {
	return &EntitlementHandler{gate: gate}
}

// Check always answers 200; a denial carries its reason in the body.
func (h *EntitlementHandler) Check(c *gin.Context) {
	restaurantID, ok := middleware.GetRestaurantID(c)
	if !ok {
		response.ValidationError(c, "invalid restaurant id", nil)
		return
	}

	response.Success(c, http.StatusOK, "entitlement checked", h.gate.Check(c.Request.Context(), restaurantID))
}
