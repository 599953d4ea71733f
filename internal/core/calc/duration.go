// Package calc holds the pure time arithmetic behind the tracking state and
// the dashboard rollups. Nothing here performs I/O, reads the wall clock or
// returns an error: malformed input degrades to zero.
package calc

import (
	"time"

	"timetrack.service/internal/core/model"
)

// WorkedHours returns the hours between clock-in and clock-out minus closed pause time.
// Open entries yield 0.
func WorkedHours(entry model.TimeEntry) float64 {
	if entry.ClockOut == nil {
		return 0
	}
	totalMinutes := wholeMinutes(entry.ClockIn, *entry.ClockOut)
	worked := totalMinutes - PauseDurationMinutes(entry.Pauses)
	if worked < 0 {
		return 0
	}
	return float64(worked) / 60
}

// EntryHours returns the persisted total when present and derives it otherwise.
func EntryHours(entry model.TimeEntry) float64 {
	if entry.TotalHours != nil {
		return *entry.TotalHours
	}
	return WorkedHours(entry)
}

// PauseDurationMinutes sums closed pauses in whole minutes.
func PauseDurationMinutes(pauses []model.Pause) int64 {
	var total int64
	for _, p := range pauses {
		if p.EndTime == nil {
			continue
		}
		if m := wholeMinutes(p.StartTime, *p.EndTime); m > 0 {
			total += m
		}
	}
	return total
}

// PauseDurationSeconds sums closed pauses in whole seconds.
func PauseDurationSeconds(pauses []model.Pause) int64 {
	var total int64
	for _, p := range pauses {
		if p.EndTime == nil {
			continue
		}
		if s := wholeSeconds(p.StartTime, *p.EndTime); s > 0 {
			total += s
		}
	}
	return total
}

// ElapsedSeconds returns the whole seconds from start to now, never negative.
// Callers sample now once and pass it to every related computation.
func ElapsedSeconds(start, now time.Time) int64 {
	if s := wholeSeconds(start, now); s > 0 {
		return s
	}
	return 0
}

// RoundedMinutes returns the duration between start and end rounded to the nearest minute.
func RoundedMinutes(start, end time.Time) int {
	seconds := ElapsedSeconds(start, end)
	return int((seconds + 30) / 60)
}

func wholeMinutes(from, to time.Time) int64 {
	return int64(to.Sub(from) / time.Minute)
}

func wholeSeconds(from, to time.Time) int64 {
	return int64(to.Sub(from) / time.Second)
}
