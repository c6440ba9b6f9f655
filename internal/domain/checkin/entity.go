// internal/domain/checkin/entity.go
package checkin

import "time"

// Checkin is one user's attendance at one event on one UTC day
type Checkin struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	EventID     int64     `json:"event_id" db:"event_id"`
	CheckDate   time.Time `json:"check_date" db:"check_date"`
	Note        string    `json:"note" db:"note"`
	Mood        string    `json:"mood" db:"mood"`
	StreakCount int       `json:"streak_count" db:"streak_count"`
	UsedFreeze  bool      `json:"used_freeze" db:"used_freeze"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StreakSummary describes a user's streak in one event
type StreakSummary struct {
	UserID        int64      `json:"user_id"`
	EventID       int64      `json:"event_id"`
	EventTitle    string     `json:"event_title,omitempty"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	TotalCheckins int        `json:"total_checkins"`
	LastCheckDate *time.Time `json:"last_check_date"`
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts whole UTC days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// CurrentStreak is lastStreak while the last check-in was today or yesterday, else 0.
func CurrentStreak(lastCheck time.Time, lastStreak int, today time.Time) int {
	gap := DaysBetween(lastCheck, today)
	if gap < 0 || gap > 1 {
		return 0
	}
	return lastStreak
}
