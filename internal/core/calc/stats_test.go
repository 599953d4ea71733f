package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack.service/internal/core/model"
)

func day(date string) time.Time {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return t
}

func completed(date string, hours float64) model.TimeEntry {
	in := day(date).Add(9 * time.Hour)
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return model.TimeEntry{
		Date:       date,
		ClockIn:    in,
		ClockOut:   &out,
		Status:     model.StatusCompleted,
		TotalHours: ptr(hours),
	}
}

func TestWeekRangeStartsMonday(t *testing.T) {
	cases := map[string]string{
		"2025-03-10": "2025-03-10", // Monday
		"2025-03-12": "2025-03-10",
		"2025-03-16": "2025-03-10", // Sunday
		"2025-03-17": "2025-03-17",
	}
	for ref, monday := range cases {
		start, end := WeekRange(day(ref))
		assert.Equal(t, monday, start.Format(model.DateLayout), ref)
		assert.Equal(t, time.Monday, start.Weekday())
		assert.Equal(t, time.Sunday, end.Weekday())
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(day("2024-02-14"))
	assert.Equal(t, "2024-02-01", start.Format(model.DateLayout))
	assert.Equal(t, "2024-02-29", end.Format(model.DateLayout))
}

func TestDailyStats(t *testing.T) {
	open := model.TimeEntry{Date: "2025-03-10", ClockIn: day("2025-03-10").Add(18 * time.Hour)}
	withPause := completed("2025-03-10", 4)
	withPause.Pauses = []model.Pause{{
		StartTime: withPause.ClockIn.Add(time.Hour),
		EndTime:   ptr(withPause.ClockIn.Add(time.Hour + 45*time.Minute)),
	}}
	entries := []model.TimeEntry{withPause, completed("2025-03-10", 2.5), completed("2025-03-11", 8), open}

	stats := DailyStatsFor(entries, "2025-03-10")
	assert.Equal(t, "2025-03-10", stats.Date)
	assert.Equal(t, 3, stats.Entries)
	assert.InDelta(t, 6.5, stats.TotalWorked, 1e-9)
	assert.InDelta(t, 0.75, stats.TotalPaused, 1e-9)
}

func TestWeeklyStatsEmpty(t *testing.T) {
	stats := WeeklyStatsFor(nil, day("2025-03-12"), "es")
	assert.Zero(t, stats.TotalHours)
	assert.Zero(t, stats.AverageDaily)
	assert.Zero(t, stats.DaysWorked)
	require.Len(t, stats.DailyBreakdown, 7)
	for _, d := range stats.DailyBreakdown {
		assert.Zero(t, d.Hours)
	}
}

func TestWeeklyStatsBreakdown(t *testing.T) {
	entries := []model.TimeEntry{
		completed("2025-03-09", 5), // previous Sunday
		completed("2025-03-10", 8),
		completed("2025-03-10", 1),
		completed("2025-03-12", 6),
		completed("2025-03-16", 3), // Sunday, inclusive
		completed("2025-03-17", 4), // next Monday
	}

	stats := WeeklyStatsFor(entries, day("2025-03-13"), "es-ES")
	assert.InDelta(t, 18.0, stats.TotalHours, 1e-9)
	assert.Equal(t, 3, stats.DaysWorked)
	assert.InDelta(t, 6.0, stats.AverageDaily, 1e-9)

	require.Len(t, stats.DailyBreakdown, 7)
	wantDates := []string{"2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14", "2025-03-15", "2025-03-16"}
	wantHours := []float64{9, 0, 6, 0, 0, 0, 3}
	for i, d := range stats.DailyBreakdown {
		assert.Equal(t, wantDates[i], d.Date)
		assert.InDelta(t, wantHours[i], d.Hours, 1e-9)
	}
	assert.Equal(t, "lun", stats.DailyBreakdown[0].DayName)
	assert.Equal(t, "dom", stats.DailyBreakdown[6].DayName)
}

func TestWeeklyStatsDerivesMissingTotals(t *testing.T) {
	e := completed("2025-03-11", 2)
	e.TotalHours = nil
	stats := WeeklyStatsFor([]model.TimeEntry{e}, day("2025-03-11"), "en")
	assert.InDelta(t, 2.0, stats.TotalHours, 1e-9)
	assert.Equal(t, "Tue", stats.DailyBreakdown[1].DayName)
}

func TestMonthlyStats(t *testing.T) {
	entries := []model.TimeEntry{
		completed("2025-02-28", 9),
		completed("2025-03-01", 4),
		completed("2025-03-07", 6),
		completed("2025-03-08", 8),
		completed("2025-03-29", 2),
		completed("2025-03-31", 1),
		completed("2025-04-01", 7),
	}

	stats := MonthlyStatsFor(entries, day("2025-03-15"))
	assert.InDelta(t, 21.0, stats.TotalHours, 1e-9)
	assert.Equal(t, 5, stats.DaysWorked)
	assert.InDelta(t, stats.TotalHours/float64(stats.DaysWorked), stats.AverageDaily, 1e-9)

	assert.Equal(t, []model.WeekHours{
		{WeekNumber: 1, Hours: 10},
		{WeekNumber: 2, Hours: 8},
		{WeekNumber: 5, Hours: 3},
	}, stats.WeeklyBreakdown)
}

func TestMonthlyStatsEmpty(t *testing.T) {
	stats := MonthlyStatsFor(nil, day("2025-03-15"))
	assert.Zero(t, stats.TotalHours)
	assert.Zero(t, stats.AverageDaily)
	assert.Zero(t, stats.DaysWorked)
	assert.Empty(t, stats.WeeklyBreakdown)
}

func TestDistribution(t *testing.T) {
	e := completed("2025-03-10", 7.5)
	e.Pauses = []model.Pause{{
		StartTime: e.ClockIn.Add(3 * time.Hour),
		EndTime:   ptr(e.ClockIn.Add(3*time.Hour + 30*time.Minute)),
	}}
	d := Distribution([]model.TimeEntry{e, completed("2025-03-11", 2)})
	assert.InDelta(t, 9.5, d.WorkHours, 1e-9)
	assert.InDelta(t, 0.5, d.PauseHours, 1e-9)
	assert.InDelta(t, 10.0, d.TotalHours, 1e-9)
}

func TestDayName(t *testing.T) {
	monday := day("2025-03-10")
	assert.Equal(t, "lun", DayName(monday, ""))
	assert.Equal(t, "lun", DayName(monday, "not a locale"))
	assert.Equal(t, "Mon", DayName(monday, "en-US"))
	assert.Equal(t, "sáb", DayName(monday.AddDate(0, 0, 5), "es-MX"))
}
