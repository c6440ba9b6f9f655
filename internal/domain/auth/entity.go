// internal/domain/auth/entity.go
package auth

import (
	"time"
)

// Session is the durable copy of a login session (the hot copy lives in Redis)
type Session struct {
	ID             int64      `json:"id" db:"id"`
	UserID         int64      `json:"user_id" db:"user_id"`
	JTI            string     `json:"-" db:"jti"`
	IPAddress      string     `json:"ip_address" db:"ip_address"`
	UserAgent      string     `json:"user_agent" db:"user_agent"`
	Status         string     `json:"status" db:"status"` // active, revoked
	LoginAt        time.Time  `json:"login_at" db:"login_at"`
	LastActivityAt time.Time  `json:"last_activity_at" db:"last_activity_at"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	LogoutAt       *time.Time `json:"logout_at,omitempty" db:"logout_at"`
}

const (
	SessionActive  = "active"
	SessionRevoked = "revoked"
)

// PasswordResetToken is a single-use token mailed by forgot-password
type PasswordResetToken struct {
	ID        int64      `json:"id" db:"id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Token     string     `json:"-" db:"token"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Usable reports whether the token can still reset a password at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
