// Package recurrence computes the next occurrence of a recurring reminder.
// It is pure: no I/O, no reads of the wall clock.
package recurrence

import (
	"time"

	"medremind/internal/entity"
)

// Advance returns the occurrence following scheduled according to rec.
// The second return value is false when the computed occurrence falls past
// the recurrence end date, meaning the series is done.
//
// Monthly advancement uses calendar month arithmetic: the day of month is
// clamped to the last day of the target month (Jan 31 + 1 month = Feb 28/29),
// never normalized into the month after.
func Advance(scheduled time.Time, rec entity.Recurrence) (time.Time, bool) {
	interval := rec.Interval
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch rec.Frequency {
	case entity.FrequencyDaily:
		next = scheduled.AddDate(0, 0, interval)
	case entity.FrequencyWeekly:
		next = scheduled.AddDate(0, 0, 7*interval)
	case entity.FrequencyMonthly:
		next = addMonthsClamped(scheduled, interval)
	default:
		return time.Time{}, false
	}

	if rec.EndDate != nil && next.After(*rec.EndDate) {
		return time.Time{}, false
	}
	return next, true
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Anchor on the first of the target month so AddDate-style overflow
	// cannot roll into the month after.
	first := time.Date(year, month+time.Month(months), 1, hour, min, sec, t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
