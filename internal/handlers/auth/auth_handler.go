// internal/handlers/auth/auth_handler.go
package auth

import (
	"context"
	"net/http"

	"rollcall-service/internal/domain/auth"
	"rollcall-service/internal/domain/user"
	"rollcall-service/internal/middleware"
	"rollcall-service/internal/pkg/jwt"
	"rollcall-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Service is the auth use case the handler drives
type Service interface {
	Register(ctx context.Context, req *auth.RegisterRequest) (*auth.LoginResponse, error)
	Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	LogoutAllSessions(ctx context.Context, userID int64) error
	GetActiveSessions(ctx context.Context, userID int64) ([]*auth.Session, error)
	RevokeSession(ctx context.Context, userID int64, jti string) error
	Me(ctx context.Context, userID int64) (*user.Profile, error)
	ChangePassword(ctx context.Context, userID int64, req *auth.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req *auth.ResetPasswordRequest) error
}

// CookieConfig describes the HttpOnly session cookie mirrored from the access token
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type AuthHandler struct {
	authService Service
	cookie      CookieConfig
	logger      *zap.Logger
}

func NewAuthHandler(authService Service, cookie CookieConfig, logger *zap.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = middleware.DefaultSessionCookie
	}
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles user registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("username", req.Username),
			zap.Error(err),
		)
		response.FromError(c, "registration failed", err)
		return
	}

	h.setSessionCookie(c, loginResp)
	response.Success(c, http.StatusCreated, "registration successful", loginResp)
}

// ========== Login ==========

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	loginResp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("identifier", req.UsernameOrEmail),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.FromError(c, "login failed", err)
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("user_id", loginResp.User.ID),
		zap.String("username", loginResp.User.Username),
	)

	h.setSessionCookie(c, loginResp)
	response.Success(c, http.StatusOK, "login successful", loginResp)
}

// ========== Logout ==========

// Logout handles user logout (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		h.logger.Error("logout failed",
			zap.Int64("user_id", claims.UserID),
			zap.Error(err),
		)
		response.FromError(c, "logout failed", err)
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, "logout successful", nil)
}

// LogoutAll handles logging out all sessions (requires auth)
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	if err := h.authService.LogoutAllSessions(c.Request.Context(), userID); err != nil {
		response.FromError(c, "logout all failed", err)
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, "all sessions logged out", nil)
}

// ========== Sessions ==========

// GetActiveSessions lists the caller's sessions
func (h *AuthHandler) GetActiveSessions(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	sessions, err := h.authService.GetActiveSessions(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "failed to get sessions", err)
		return
	}

	currentJTI, _ := middleware.GetJTI(c)
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"session_id":       s.JTI,
			"ip_address":       s.IPAddress,
			"user_agent":       s.UserAgent,
			"login_at":         s.LoginAt,
			"last_activity_at": s.LastActivityAt,
			"expires_at":       s.ExpiresAt,
			"current":          s.JTI == currentJTI,
		})
	}

	response.Success(c, http.StatusOK, "active sessions", out)
}

// RevokeSession ends one of the caller's sessions
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	if err := h.authService.RevokeSession(c.Request.Context(), userID, c.Param("session_id")); err != nil {
		response.FromError(c, "failed to revoke session", err)
		return
	}

	response.Success(c, http.StatusOK, "session revoked", nil)
}

// ========== Profile ==========

// GetMe returns the caller's profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	profile, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "failed to get profile", err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", profile)
}

// ========== Password Management ==========

// ChangePassword handles password change (requires auth)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		response.FromError(c, "password change failed", err)
		return
	}

	h.clearSessionCookie(c)
	response.Success(c, http.StatusOK, "password changed successfully", nil)
}

// ForgotPassword handles password reset request
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.FromError(c, "password reset request failed", err)
		return
	}

	// Same answer whether or not the account exists
	response.Success(c, http.StatusOK, "if the email exists a reset link has been sent", nil)
}

// ResetPassword completes a password reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), &req); err != nil {
		response.FromError(c, "password reset failed", err)
		return
	}

	response.Success(c, http.StatusOK, "password reset successfully", nil)
}

// ========== Cookie ==========

func (h *AuthHandler) setSessionCookie(c *gin.Context, resp *auth.LoginResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, resp.AccessToken, resp.ExpiresIn, "/", h.cookie.Domain, h.cookie.Secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)
}
