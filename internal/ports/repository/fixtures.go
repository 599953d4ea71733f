package repository

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"timetrack.service/internal/core/model"
)

// DefaultDemoUserID is the account the demo backend is seeded for.
const DefaultDemoUserID = "demo-user-123"

const demoHistoryDays = 30

type fixtureFile struct {
	Entries []model.TimeEntry `yaml:"entries"`
}

// LoadFixtures reads entries from a YAML file shaped as {entries: [...]}.
func LoadFixtures(path string) ([]model.TimeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture file %s: %w", path, err)
	}
	for i := range f.Entries {
		e := &f.Entries[i]
		if e.ID == "" || e.UserID == "" {
			return nil, fmt.Errorf("fixture entry %d: id and user_id are required", i)
		}
		if e.Status == "" {
			e.Status = model.StatusCompleted
		}
		e.LaborStatus = model.DeliveryCompleted
		e.EmailStatus = model.DeliveryCompleted
		for j := range e.Pauses {
			e.Pauses[j].TimeEntryID = e.ID
		}
	}
	return f.Entries, nil
}

// DemoEntries generates completed weekday entries for the days before today, each
// with a meal pause and usually a short break. The same seed yields the same history.
func DemoEntries(userID string, today time.Time, seed int64) []model.TimeEntry {
	rng := rand.New(rand.NewSource(seed))
	loc := today.Location()
	y, m, d := today.Date()

	var entries []model.TimeEntry
	for i := 1; i <= demoHistoryDays; i++ {
		date := time.Date(y, m, d-i, 0, 0, 0, 0, loc)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		// Start between 8:00 and 9:30, stay between 7.5 and 9 hours.
		clockIn := date.Add(8*time.Hour + time.Duration(rng.Intn(90))*time.Minute)
		clockOut := clockIn.Add(450*time.Minute + time.Duration(rng.Intn(90))*time.Minute)
		id := fmt.Sprintf("demo-entry-%02d", i)

		pauses := []model.Pause{
			demoPause(id+"-break", id, model.PauseBreak, clockIn.Add(2*time.Hour+time.Duration(rng.Intn(60))*time.Minute), 10+rng.Intn(10)),
			demoPause(id+"-meal", id, model.PauseMeal, clockIn.Add(4*time.Hour+time.Duration(rng.Intn(60))*time.Minute), 30+rng.Intn(30)),
		}
		if rng.Float64() < 0.3 {
			pauses = pauses[1:]
		}

		pauseMinutes := 0
		for _, p := range pauses {
			pauseMinutes += *p.Duration
		}
		hours := math.Round((clockOut.Sub(clockIn).Minutes()-float64(pauseMinutes))/60*100) / 100

		entries = append(entries, model.TimeEntry{
			ID:          id,
			UserID:      userID,
			Date:        date.Format(model.DateLayout),
			ClockIn:     clockIn,
			ClockOut:    &clockOut,
			Status:      model.StatusCompleted,
			TotalHours:  &hours,
			CreatedAt:   clockIn,
			UpdatedAt:   clockOut,
			Pauses:      pauses,
			LaborStatus: model.DeliveryCompleted,
			EmailStatus: model.DeliveryCompleted,
		})
	}
	return entries
}

func demoPause(id, entryID string, t model.PauseType, start time.Time, minutes int) model.Pause {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return model.Pause{
		ID:          id,
		TimeEntryID: entryID,
		StartTime:   start,
		EndTime:     &end,
		Type:        t,
		Duration:    &minutes,
		CreatedAt:   start,
		UpdatedAt:   end,
	}
}
