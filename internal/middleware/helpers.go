// internal/middleware/helpers.go
package middleware

import (
	"menupro-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// MustGetIdentityID gets identity ID from context or panics
func MustGetIdentityID(c *gin.Context) int64 {
	identityID, exists := GetIdentityID(c)
	if !exists {
		panic("identity_id not found in context")
	}
	return identityID
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get("roles")
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	return HasRole(c, jwt.RoleAdmin) || HasRole(c, jwt.RoleSuperAdmin)
}

// GetRestaurantID returns the restaurant resolved by RequireRestaurantOwner.
func GetRestaurantID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("restaurant_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
