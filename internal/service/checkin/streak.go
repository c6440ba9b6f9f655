// internal/service/checkin/streak.go
package checkin

import (
	"fmt"
	"time"

	"rollcall-service/internal/domain/checkin"
	xerrors "rollcall-service/internal/pkg/errors"
)

const AchievementFirstCheckin = "first_checkin"

var streakMilestones = []int{7, 30, 100, 365}

// Plan is the streak a new check-in will carry
type Plan struct {
	Streak int
	// FreezeStreak is the streak to use instead when a freeze bridges a single missed day
	FreezeStreak int
}

// NextStreak plans the streak for a check-in on today given the previous check-in, if any.
func NextStreak(prev *checkin.Checkin, today time.Time) (Plan, error) {
	if prev == nil {
		return Plan{Streak: 1}, nil
	}

	switch gap := checkin.DaysBetween(prev.CheckDate, today); {
	case gap <= 0:
		return Plan{}, xerrors.ErrAlreadyCheckedIn
	case gap == 1:
		return Plan{Streak: prev.StreakCount + 1}, nil
	case gap == 2:
		return Plan{Streak: 1, FreezeStreak: prev.StreakCount + 1}, nil
	default:
		return Plan{Streak: 1}, nil
	}
}

// Achievements lists what a check-in with streak earns
func Achievements(streak int, first bool) []string {
	var out []string
	if first {
		out = append(out, AchievementFirstCheckin)
	}
	for _, m := range streakMilestones {
		if streak == m {
			out = append(out, fmt.Sprintf("streak_%d", m))
		}
	}
	return out
}
