// internal/domain/user/dto.go
package user

import "time"

// Profile is the user shape shared by the server responses and the client store
type Profile struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	ProfileImage  string    `json:"profile_image,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	TotalCheckins int       `json:"total_checkins"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	Achievements  []string  `json:"achievements"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// UpdateRequest holds the editable profile fields; nil means unchanged
type UpdateRequest struct {
	Email        *string `json:"email" binding:"omitempty,email"`
	FullName     *string `json:"full_name" binding:"omitempty,max=100"`
	ProfileImage *string `json:"profile_image" binding:"omitempty,url,max=500"`
	Bio          *string `json:"bio" binding:"omitempty,max=500"`
	IsActive     *bool   `json:"is_active"`
}

// ListQuery paginates user listings
type ListQuery struct {
	Skip  int `form:"skip" binding:"min=0"`
	Limit int `form:"limit" binding:"min=0,max=100"`
}
