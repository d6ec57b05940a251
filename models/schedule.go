package models

import (
	"fmt"
	"strings"
	"time"
)

// NeverRun is the far-future sentinel assigned to on-demand questions. It
// keeps the scheduler's due-query a plain timestamp comparison.
var NeverRun = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a lowercase or mixed-case day name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", name)
}

// ComputeNextRun returns the next scheduled run strictly after now.
//
//   - daily: next occurrence of timeOfDay (midnight when empty).
//   - weekly: next occurrence of timeOfDay on the nearest day in daysOfWeek,
//     wrapping into the following week; with no days given it degrades to
//     daily behavior.
//   - monthly: timeOfDay one calendar month ahead, with Go's AddDate
//     normalization when that day does not exist.
//   - on-demand: the NeverRun sentinel.
func ComputeNextRun(frequency, timeOfDay string, daysOfWeek []time.Weekday, now time.Time) time.Time {
	hour, minute := parseTimeOfDay(timeOfDay)

	switch frequency {
	case FrequencyOnDemand:
		return NeverRun

	case FrequencyDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case FrequencyWeekly:
		if len(daysOfWeek) == 0 {
			return ComputeNextRun(FrequencyDaily, timeOfDay, nil, now)
		}
		wanted := make(map[time.Weekday]bool, len(daysOfWeek))
		for _, d := range daysOfWeek {
			wanted[d] = true
		}
		for offset := 0; offset <= 7; offset++ {
			day := now.AddDate(0, 0, offset)
			if !wanted[day.Weekday()] {
				continue
			}
			next := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
			if next.After(now) {
				return next
			}
		}
		// Unreachable for a non-empty day set; kept as a safe fallback.
		return now.AddDate(0, 0, 7)

	case FrequencyMonthly:
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		return next.AddDate(0, 1, 0)

	default:
		return NeverRun
	}
}

func parseTimeOfDay(value string) (hour, minute int) {
	if value == "" {
		return 0, 0
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
