// internal/pkg/session/types.go
package session

import "time"

type SessionData struct {
	JTI            string    `json:"jti"`
	UserID         int64     `json:"user_id"`
	SessionID      int64     `json:"session_id"` // DB session ID
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsActive       bool      `json:"is_active"`
}
