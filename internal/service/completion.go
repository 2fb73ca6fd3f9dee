package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Course durations are free text like "6 months" or "45 Days". Only the
// leading integer and unit keyword matter; anything else ("lifetime
// access") means the course has no fixed end date.
var durationPattern = regexp.MustCompile(`(?i)(\d+)\s*(day|week|month|year)`)

// ComputeCompletionDate derives the completion date from the enrollment
// start and the course duration text. The second return value is false
// when no completion date is computable. Month and year additions clamp
// to the last valid day of the target month (Jan 31 + 1 month lands on
// Feb 29 in a leap year, never in March).
func ComputeCompletionDate(enrolledAt time.Time, durationText string) (time.Time, bool) {
	if enrolledAt.IsZero() {
		return time.Time{}, false
	}
	match := durationPattern.FindStringSubmatch(durationText)
	if match == nil {
		return time.Time{}, false
	}
	magnitude, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}

	switch strings.ToLower(match[2]) {
	case "day":
		return enrolledAt.AddDate(0, 0, magnitude), true
	case "week":
		return enrolledAt.AddDate(0, 0, magnitude*7), true
	case "month":
		return addMonthsClamped(enrolledAt, magnitude), true
	case "year":
		return addMonthsClamped(enrolledAt, magnitude*12), true
	}
	return time.Time{}, false
}

// IsCompleted reports whether the course is finished at the given instant.
// The boundary is inclusive: completion at exactly now counts as done.
// now is explicit so callers and tests control the clock.
func IsCompleted(enrolledAt time.Time, durationText string, now time.Time) bool {
	completion, ok := ComputeCompletionDate(enrolledAt, durationText)
	if !ok {
		return false
	}
	return !now.Before(completion)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	day := t.Day()
	if last := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
