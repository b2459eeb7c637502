// internal/handlers/settings/settings_handler.go
package settings

import (
	"context"
	"net/http"

	"menupro-service/internal/domain/settings"
	"menupro-service/internal/middleware"
	"menupro-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Provider interface {
	List(ctx context.Context) ([]settings.EffectiveSetting, error)
	Update(ctx context.Context, key string, req *settings.UpdateSettingRequest, updatedBy int64) (*settings.EffectiveSetting, error)
}

type SettingsHandler struct {
	provider Provider
}

func NewSettingsHandler(provider Provider) *SettingsHandler {
	return &SettingsHandler{provider: provider}
}

// List returns every subscription setting with its effective value
func (h *SettingsHandler) List(c *gin.Context) {
	result, err := h.provider.List(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load settings", err)
		return
	}

	response.Success(c, http.StatusOK, "settings retrieved", result)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	key := c.Param("key")

	all, err := h.provider.List(c.Request.Context())
	if err != nil {
		response.FromError(c, "failed to load settings", err)
		return
	}

	for _, s := range all {
		if s.Key == key {
			response.Success(c, http.StatusOK, "setting retrieved", s)
			return
		}
	}
	response.NotFound(c, "unknown setting")
}

func (h *SettingsHandler) Update(c *gin.Context) {
	adminID := middleware.MustGetIdentityID(c)

	var req settings.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.provider.Update(c.Request.Context(), c.Param("key"), &req, adminID)
	if err != nil {
		response.FromError(c, "failed to update setting", err)
		return
	}

	response.Success(c, http.StatusOK, "setting updated", result)
}
