// internal/domain/streakfreeze/entity.go
package streakfreeze

import "time"

// StreakFreeze lets a user miss one day without losing a streak
type StreakFreeze struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	EventID    int64      `json:"event_id" db:"event_id"`
	IsUsed     bool       `json:"is_used" db:"is_used"`
	UsedDate   *time.Time `json:"used_date,omitempty" db:"used_date"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty" db:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Available reports whether the freeze can still be consumed at now
func (f *StreakFreeze) Available(now time.Time) bool {
	if f.IsUsed {
		return false
	}
	return f.ExpiryDate == nil || f.ExpiryDate.After(now)
}

// GrantRequest gives a user a freeze for one event
type GrantRequest struct {
	UserID     int64      `json:"user_id" binding:"required,gt=0"`
	ExpiryDate *time.Time `json:"expiry_date"`
}
