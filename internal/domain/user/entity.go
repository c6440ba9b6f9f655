// internal/domain/user/entity.go
package user

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account together with its aggregate streak counters
type User struct {
	ID            int64          `json:"id" db:"id"`
	Username      string         `json:"username" db:"username"`
	Email         string         `json:"email" db:"email"`
	PasswordHash  string         `json:"-" db:"password_hash"`
	FullName      string         `json:"full_name" db:"full_name"`
	Role          string         `json:"role" db:"role"`
	IsActive      bool           `json:"is_active" db:"is_active"`
	ProfileImage  string         `json:"profile_image" db:"profile_image"`
	Bio           string         `json:"bio" db:"bio"`
	TotalCheckins int            `json:"total_checkins" db:"total_checkins"`
	CurrentStreak int            `json:"current_streak" db:"current_streak"`
	LongestStreak int            `json:"longest_streak" db:"longest_streak"`
	Achievements  pq.StringArray `json:"achievements" db:"achievements"`
	LastLogin     *time.Time     `json:"last_login,omitempty" db:"last_login"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName falls back to the username when no full name is set
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Profile is the public view of a user returned by the API
func (u *User) Profile() Profile {
	achievements := []string(u.Achievements)
	if achievements == nil {
		achievements = []string{}
	}
	return Profile{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Name:          u.DisplayName(),
		Role:          u.Role,
		ProfileImage:  u.ProfileImage,
		Bio:           u.Bio,
		TotalCheckins: u.TotalCheckins,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
		Achievements:  achievements,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}
