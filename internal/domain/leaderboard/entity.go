// internal/domain/leaderboard/entity.go
package leaderboard

import "fmt"

// Metric is the column a leaderboard is ranked by
type Metric string

const (
	MetricCurrentStreak Metric = "current_streak"
	MetricLongestStreak Metric = "longest_streak"
	MetricTotalCheckins Metric = "total_checkins"

	DefaultLimit = 10
	MaxLimit     = 100
)

// ParseMetric validates a metric name, defaulting to the current streak.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "":
		return MetricCurrentStreak, nil
	case MetricCurrentStreak, MetricLongestStreak, MetricTotalCheckins:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("unknown leaderboard metric %q", s)
	}
}

// ClampLimit keeps limit within 1..MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Entry is one ranked row
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	ProfileImage  string `json:"profile_image,omitempty"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalCheckins int    `json:"total_checkins"`
}

// Value returns the figure the entry is ranked by for m.
func (e Entry) Value(m Metric) int {
	switch m {
	case MetricLongestStreak:
		return e.LongestStreak
	case MetricTotalCheckins:
		return e.TotalCheckins
	default:
		return e.CurrentStreak
	}
}
