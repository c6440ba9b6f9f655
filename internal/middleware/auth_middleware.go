// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"rollcall-service/internal/domain/user"
	"rollcall-service/internal/pkg/jwt"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by Auth
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxJTI      = "jti"
	ctxRole     = "role"
	ctxClaims   = "claims"
)

const DefaultSessionCookie = "rollcall_session"

// TokenValidator checks an access token end to end
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	validator  TokenValidator
	cookieName string
}

func NewAuthMiddleware(validator TokenValidator, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &AuthMiddleware{
		validator:  validator,
		cookieName: cookieName,
	}
}

// Auth is the base authentication middleware that validates JWT tokens
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c, m.cookieName)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole middleware that requires user to have one of the specified roles
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetRole(c)
		if !exists {
			response.Forbidden(c, "no role found - authentication required")
			return
		}

		for _, required := range roles {
			if role == required {
				c.Next()
				return
			}
		}

		err := errors.New("user does not have required role")
		response.Error(c, http.StatusForbidden, "insufficient permissions", err, map[string]interface{}{
			"required_roles": roles,
			"user_role":      role,
		})
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(user.RoleAdmin),
	}
}

// OptionalAuth middleware that doesn't abort if no token is provided
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c, m.cookieName)
		if token == "" {
			c.Next()
			return
		}

		claims, err := m.validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			// Don't abort, just continue without user context
			c.Next()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	c.Set(ctxJTI, claims.ID)
	c.Set(ctxRole, claims.Role)
	c.Set(ctxClaims, claims)
}

// ExtractToken reads the bearer header, then the token query param, then the session cookie
func ExtractToken(c *gin.Context, cookieName string) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades
	if token := c.Query("token"); token != "" {
		return token
	}

	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			return token
		}
	}

	return ""
}
