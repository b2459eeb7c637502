// internal/middleware/restaurant_middleware.go
package middleware

import (
	"strconv"

	"menupro-service/internal/domain/restaurant"
	"menupro-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRestaurantOwner loads the :id restaurant and lets through its owner
// and admins. MUST be used after Auth() middleware.
func RequireRestaurantOwner(restaurants restaurant.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			response.ValidationError(c, "invalid restaurant id", err)
			return
		}

		identityID, ok := GetIdentityID(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}

		rest, err := restaurants.FindByID(c.Request.Context(), id)
		if err != nil {
			response.FromError(c, "failed to load restaurant", err)
			return
		}

		if !rest.IsOwnedBy(identityID) && !IsAdmin(c) {
			response.Forbidden(c, "restaurant belongs to another owner")
			return
		}

		c.Set("restaurant_id", rest.ID)
		c.Next()
	}
}
