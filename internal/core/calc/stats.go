package calc

import (
	"sort"
	"time"

	"timetrack.service/internal/core/model"
)

// WeekRange returns midnight of the Monday and of the Sunday of ref's week, in ref's location.
func WeekRange(ref time.Time) (time.Time, time.Time) {
	offset := (int(ref.Weekday()) + 6) % 7
	y, m, d := ref.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, ref.Location())
	return start, start.AddDate(0, 0, 6)
}

// MonthRange returns midnight of the first and of the last day of ref's month.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	y, m, _ := ref.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
	return start, start.AddDate(0, 1, -1)
}

// DailyStatsFor aggregates the entries recorded on date (DateLayout).
func DailyStatsFor(entries []model.TimeEntry, date string) model.DailyStats {
	stats := model.DailyStats{Date: date}
	for _, e := range entries {
		if e.Date != date {
			continue
		}
		stats.Entries++
		stats.TotalWorked += EntryHours(e)
		stats.TotalPaused += float64(PauseDurationMinutes(e.Pauses)) / 60
	}
	return stats
}

// WeeklyStatsFor aggregates the Monday-start week containing ref. The breakdown always
// has seven days, Monday first, zero-filled.
func WeeklyStatsFor(entries []model.TimeEntry, ref time.Time, locale string) model.WeeklyStats {
	start, end := WeekRange(ref)
	week := filterRange(entries, model.RangeOf(start, end))

	stats := model.WeeklyStats{
		DailyBreakdown: make([]model.DayHours, 0, 7),
	}
	hoursByDate := make(map[string]float64)
	for _, e := range week {
		hours := EntryHours(e)
		hoursByDate[e.Date] += hours
		stats.TotalHours += hours
	}
	stats.DaysWorked = len(hoursByDate)
	stats.AverageDaily = average(stats.TotalHours, stats.DaysWorked)

	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		date := day.Format(model.DateLayout)
		stats.DailyBreakdown = append(stats.DailyBreakdown, model.DayHours{
			Date:    date,
			DayName: DayName(day, locale),
			Hours:   hoursByDate[date],
		})
	}
	return stats
}

// MonthlyStatsFor aggregates the calendar month containing ref. Week buckets are
// ceil(day_of_month/7), 1-based, and only buckets holding entries are returned.
func MonthlyStatsFor(entries []model.TimeEntry, ref time.Time) model.MonthlyStats {
	start, end := MonthRange(ref)
	month := filterRange(entries, model.RangeOf(start, end))

	var stats model.MonthlyStats
	days := make(map[string]struct{})
	buckets := make(map[int]float64)
	for _, e := range month {
		hours := EntryHours(e)
		stats.TotalHours += hours
		days[e.Date] = struct{}{}

		day, err := time.Parse(model.DateLayout, e.Date)
		if err != nil {
			continue
		}
		buckets[(day.Day()+6)/7] += hours
	}
	stats.DaysWorked = len(days)
	stats.AverageDaily = average(stats.TotalHours, stats.DaysWorked)

	stats.WeeklyBreakdown = make([]model.WeekHours, 0, len(buckets))
	for week, hours := range buckets {
		stats.WeeklyBreakdown = append(stats.WeeklyBreakdown, model.WeekHours{WeekNumber: week, Hours: hours})
	}
	sort.Slice(stats.WeeklyBreakdown, func(i, j int) bool {
		return stats.WeeklyBreakdown[i].WeekNumber < stats.WeeklyBreakdown[j].WeekNumber
	})
	return stats
}

// Distribution returns total work and pause hours across entries.
func Distribution(entries []model.TimeEntry) model.TimeDistribution {
	var d model.TimeDistribution
	for _, e := range entries {
		d.WorkHours += EntryHours(e)
		d.PauseHours += float64(PauseDurationMinutes(e.Pauses)) / 60
	}
	d.TotalHours = d.WorkHours + d.PauseHours
	return d
}

func filterRange(entries []model.TimeEntry, r model.DateRange) []model.TimeEntry {
	var out []model.TimeEntry
	for _, e := range entries {
		if r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

func average(total float64, days int) float64 {
	if days == 0 {
		return 0
	}
	return total / float64(days)
}
