// internal/middleware/helpers.go
package middleware

import (
	"rollcall-service/internal/domain/user"
	"rollcall-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// GetUserID gets the authenticated user id from context
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetUserID gets the user id from context or panics
func MustGetUserID(c *gin.Context) int64 {
	id, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return id
}

// GetJTI gets the token id from context
func GetJTI(c *gin.Context) (string, bool) {
	jti, ok := c.Get(ctxJTI)
	if !ok {
		return "", false
	}
	s, ok := jti.(string)
	return s, ok
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// GetRole gets the user role from context
func GetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxRole)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// GetClaims returns the verified token claims
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ctxUserID)
	return exists
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	role, _ := GetRole(c)
	return role == user.RoleAdmin
}
