// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const PurposeAccess = "access"

// Roles recognised by the API.
const (
	RoleOwner      = "restaurant_owner"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Claims represents the JWT claims
type Claims struct {
	IdentityID     int64                  `json:"identity_id"`
	Roles          []string               `json:"roles,omitempty"`
	Device         string                 `json:"device,omitempty"`
	IsTemp         bool                   `json:"is_temp"`
	SessionPurpose string                 `json:"session_purpose"`
	ExtraData      map[string]interface{} `json:"extra_data,omitempty"`
	jwt.RegisteredClaims
}

// HasRole checks if the claims contain a specific role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the claims contain any of the specified roles
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user is an admin (including super admin)
func (c *Claims) IsAdmin() bool {
	return c.HasAnyRole(RoleAdmin, RoleSuperAdmin)
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
