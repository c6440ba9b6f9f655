// internal/domain/auth/dto.go
package auth

import (
	"time"

	"rollcall-service/internal/domain/user"
)

// RegisterRequest for user registration
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50,username"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FullName  string `json:"full_name" binding:"max=100"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest accepts either the username or the email as identifier
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	IPAddress       string `json:"-"`
	UserAgent       string `json:"-"`
}

// LoginResponse successful login response
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        user.Profile `json:"user"`
}

// ChangePasswordRequest for password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// ForgotPasswordRequest for password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest for completing password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}
