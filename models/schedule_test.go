package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, 2025-06-11 10:30 UTC.
var wednesdayMorning = time.Date(2025, time.June, 11, 10, 30, 0, 0, time.UTC)

func TestComputeNextRunDailyBeforeTimeOfDay(t *testing.T) {
	next := ComputeNextRun(FrequencyDaily, "14:00", nil, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 11, 14, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunDailyAfterTimeOfDay(t *testing.T) {
	next := ComputeNextRun(FrequencyDaily, "09:00", nil, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 12, 9, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunDailyExactlyAtTimeOfDay(t *testing.T) {
	// Equal to now is not strictly after; must land on the next day.
	next := ComputeNextRun(FrequencyDaily, "10:30", nil, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 12, 10, 30, 0, 0, time.UTC), next)
}

func TestComputeNextRunDailyEmptyTimeOfDay(t *testing.T) {
	next := ComputeNextRun(FrequencyDaily, "", nil, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklySameDayLater(t *testing.T) {
	next := ComputeNextRun(FrequencyWeekly, "18:00", []time.Weekday{time.Wednesday}, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 11, 18, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklySameDayPassedWrapsAWeek(t *testing.T) {
	next := ComputeNextRun(FrequencyWeekly, "08:00", []time.Weekday{time.Wednesday}, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 18, 8, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunWeeklyPicksNearestDay(t *testing.T) {
	next := ComputeNextRun(FrequencyWeekly, "08:00", []time.Weekday{time.Monday, time.Friday}, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.June, 13, 8, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Friday, next.Weekday())
}

func TestComputeNextRunWeeklyNoDaysDegradesToDaily(t *testing.T) {
	weekly := ComputeNextRun(FrequencyWeekly, "14:00", nil, wednesdayMorning)
	daily := ComputeNextRun(FrequencyDaily, "14:00", nil, wednesdayMorning)
	assert.Equal(t, daily, weekly)
}

func TestComputeNextRunMonthly(t *testing.T) {
	next := ComputeNextRun(FrequencyMonthly, "06:00", nil, wednesdayMorning)
	assert.Equal(t, time.Date(2025, time.July, 11, 6, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunMonthlyEndOfMonthNormalizes(t *testing.T) {
	jan31 := time.Date(2025, time.January, 31, 12, 0, 0, 0, time.UTC)
	next := ComputeNextRun(FrequencyMonthly, "06:00", nil, jan31)
	// AddDate normalization: Jan 31 + 1 month = Mar 3 (2025 is not a leap year).
	assert.Equal(t, time.Date(2025, time.March, 3, 6, 0, 0, 0, time.UTC), next)
}

func TestComputeNextRunOnDemandSentinel(t *testing.T) {
	next := ComputeNextRun(FrequencyOnDemand, "14:00", nil, wednesdayMorning)
	assert.Equal(t, NeverRun, next)
	assert.Equal(t, 9999, next.Year())
}

func TestComputeNextRunUnknownFrequencySentinel(t *testing.T) {
	next := ComputeNextRun("fortnightly", "", nil, wednesdayMorning)
	assert.Equal(t, NeverRun, next)
}

func TestComputeNextRunAlwaysStrictlyAfterNow(t *testing.T) {
	for _, freq := range []string{FrequencyDaily, FrequencyWeekly, FrequencyMonthly} {
		next := ComputeNextRun(freq, "10:30", []time.Weekday{time.Wednesday}, wednesdayMorning)
		assert.True(t, next.After(wednesdayMorning), "frequency %s produced %s", freq, next)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("monday")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("  Friday ")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, d)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}
