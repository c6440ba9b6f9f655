package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	assert.NoError(t, err)
	assert.Equal(t, MetricCurrentStreak, m)

	m, err = ParseMetric("total_checkins")
	assert.NoError(t, err)
	assert.Equal(t, MetricTotalCheckins, m)

	_, err = ParseMetric("karma")
	assert.Error(t, err)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, 5, ClampLimit(5))
	assert.Equal(t, MaxLimit, ClampLimit(1000))
}
