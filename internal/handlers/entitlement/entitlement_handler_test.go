package entitlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"menupro-service/internal/service/entitlement"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGate map[int64]entitlement.Decision

func (g stubGate) Check(ctx context.Context, restaurantID int64) entitlement.Decision {
	if d, ok := g[restaurantID]; ok {
		return d
	}
	return entitlement.Decision{RestaurantID: restaurantID, Reason: entitlement.ReasonNoSubscription}
}

func TestCheck(t *testing.T) {
	gate := stubGate{10: {RestaurantID: 10, Allowed: true}}
	h := NewEntitlementHandler(gate)

	r := gin.New()
	r.GET("/restaurants/:id/entitlement", func(c *gin.Context) {
		if c.Param("id") == "10" {
			c.Set("restaurant_id", int64(10))
		} else {
			c.Set("restaurant_id", int64(11))
		}
	}, h.Check)

	tests := []struct {
		path    string
		allowed bool
		reason  entitlement.Reason
	}{
		{"/restaurants/10/entitlement", true, entitlement.ReasonNone},
		{"/restaurants/11/entitlement", false, entitlement.ReasonNoSubscription},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var env struct {
			Data entitlement.Decision `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, tt.allowed, env.Data.Allowed, tt.path)
		assert.Equal(t, tt.reason, env.Data.Reason, tt.path)
	}
}

func TestCheck_MissingRestaurant(t *testing.T) {
	r := gin.New()
	r.GET("/restaurants/:id/entitlement", NewEntitlementHandler(stubGate{}).Check)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/restaurants/10/entitlement", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
