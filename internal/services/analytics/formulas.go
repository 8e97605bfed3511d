package analytics

import (
	"fmt"
	"math"
	"time"
)

// Metric formulas shared by the report pipelines. All of these are pure;
// the exact rounding and rank rules are part of the dashboard contract,
// so downstream consumers see stable numbers across recomputes.

// Round rounds x to the given number of decimal places.
func Round(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// SafeGrowthPercent computes relative growth between two window values
// as a percentage with one decimal place. It never divides by zero:
// 0→0 yields 0, 0→positive clamps to 100, positive→0 clamps to -100.
func SafeGrowthPercent(current, previous float64) float64 {
	return SafeGrowthPercentN(current, previous, 1)
}

// SafeGrowthPercentN is SafeGrowthPercent with configurable decimals.
func SafeGrowthPercentN(current, previous float64, decimals int) float64 {
	if math.IsNaN(current) || math.IsInf(current, 0) {
		current = 0
	}
	if math.IsNaN(previous) || math.IsInf(previous, 0) {
		previous = 0
	}

	if previous == 0 && current == 0 {
		return 0
	}
	if previous == 0 && current > 0 {
		return 100
	}
	if previous > 0 && current == 0 {
		return -100
	}

	return Round((current-previous)/previous*100, decimals)
}

// SuccessRate returns the success percentage with one decimal place,
// 0 when the population is empty.
func SuccessRate(successCount, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(successCount)/float64(total)*100, 1)
}

// Percentile returns the nearest-rank percentile of an ascending
// sequence: the value at index floor(p*len), clamped to the last
// element. Not interpolated; rank selection is part of the contract.
// Returns 0 for an empty sequence.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Floor(p * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// EngagementScore composes activity volume and success rate into a
// single per-user score: round(queries*0.7 + successRate*0.3).
func EngagementScore(queryCount int, successRatePercent float64) int {
	return int(math.Round(float64(queryCount)*0.7 + successRatePercent*0.3))
}

// WeekKey returns the retention-cohort key for a date, formatted
// YYYY-Www. The week number is anchored at Jan 1 (UTC) and offset by
// the UTC weekday of the local-midnight Jan 1 instant; cohort keys
// written by earlier deployments depend on exactly this numbering, so
// keep it as is.
func WeekKey(t time.Time) string {
	t = t.UTC()
	year := t.Year()

	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := float64(t.Sub(jan1)) / float64(24*time.Hour)
	offset := float64(time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local).UTC().Weekday())

	week := int(math.Ceil((days + offset + 1) / 7))
	return fmt.Sprintf("%d-W%02d", year, week)
}
