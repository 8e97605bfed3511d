package analytics

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeGrowthPercent(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		want     float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero clamps to 100", 5, 0, 100},
		{"to zero clamps to -100", 0, 5, -100},
		{"plain growth", 150, 100, 50.0},
		{"doubling", 4, 2, 100.0},
		{"decline", 50, 100, -50.0},
		{"rounded to one decimal", 100, 3, 3233.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeGrowthPercent(tt.current, tt.previous))
		})
	}
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 0.0, SuccessRate(0, 0))
	assert.Equal(t, 100.0, SuccessRate(10, 10))
	assert.Equal(t, 75.0, SuccessRate(3, 4))
	assert.Equal(t, 33.3, SuccessRate(1, 3))

	// Always within [0, 100].
	for succ := 0; succ <= 5; succ++ {
		for total := succ; total <= 5; total++ {
			rate := SuccessRate(succ, total)
			assert.GreaterOrEqual(t, rate, 0.0)
			assert.LessOrEqual(t, rate, 100.0)
		}
	}
}

func TestPercentile_NearestRank(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}

	// floor(0.5*5) = 2 -> 30, not the interpolated midpoint
	assert.Equal(t, 30.0, Percentile(values, 0.5))
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 50.0, Percentile(values, 0.95))
	// p=1.0 clamps to the last index
	assert.Equal(t, 50.0, Percentile(values, 1.0))
	assert.Equal(t, 0.0, Percentile(nil, 0.5))
}

func TestEngagementScore(t *testing.T) {
	assert.Equal(t, 31, EngagementScore(10, 80))
	assert.Equal(t, 0, EngagementScore(0, 0))
	assert.Equal(t, 30, EngagementScore(0, 100))
}

func TestWeekKey_Format(t *testing.T) {
	key := WeekKey(time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^2025-W\d{2}$`), key)
}

func TestWeekKey_MonotonicWithinYear(t *testing.T) {
	prev := ""
	for d := 0; d < 364; d++ {
		date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		key := WeekKey(date)
		if prev != "" {
			assert.GreaterOrEqual(t, key, prev, "week key must not decrease within a year (day %d)", d)
		}
		prev = key
	}
}

func TestWeekKey_SameDaySameWeek(t *testing.T) {
	morning := time.Date(2025, 6, 10, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, WeekKey(morning), WeekKey(evening))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 3.14, Round(3.14159, 2))
	assert.Equal(t, 3.0, Round(3.4, 0))
	assert.Equal(t, -2.5, Round(-2.45, 1))
}
