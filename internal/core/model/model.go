package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for TimeEntry.Date and date ranges.
const DateLayout = "2006-01-02"

// EntryStatus defines the lifecycle state of a time entry.
type EntryStatus string

const (
	StatusActive    EntryStatus = "active"
	StatusPaused    EntryStatus = "paused"
	StatusCompleted EntryStatus = "completed"
)

// Open reports whether the entry is still the user's current session.
func (s EntryStatus) Open() bool {
	return s == StatusActive || s == StatusPaused
}

// PauseType classifies an interruption within an entry.
type PauseType string

const (
	PauseMeal  PauseType = "meal"
	PauseBreak PauseType = "break"
	PauseOther PauseType = "other"
)

// ErrInvalidPauseType is returned when a pause type is not one of meal, break or other.
var ErrInvalidPauseType = errors.New("invalid pause type")

// ParsePauseType validates a raw pause type.
func ParsePauseType(raw string) (PauseType, error) {
	switch t := PauseType(strings.ToLower(strings.TrimSpace(raw))); t {
	case PauseMeal, PauseBreak, PauseOther:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPauseType, raw)
	}
}

// DeliveryStatus defines the state of a completed shift's downstream job (labor sync, email).
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryProcessing DeliveryStatus = "PROCESSING"
	DeliveryCompleted  DeliveryStatus = "COMPLETED"
	DeliveryFailed     DeliveryStatus = "FAILED"
)

// Pause is one interruption within an entry. EndTime and Duration are nil while open.
type Pause struct {
	ID          string     `json:"id" db:"id" yaml:"id"`
	TimeEntryID string     `json:"timeEntryId" db:"time_entry_id" yaml:"time_entry_id"`
	StartTime   time.Time  `json:"startTime" db:"start_time" yaml:"start_time"`
	EndTime     *time.Time `json:"endTime,omitempty" db:"end_time" yaml:"end_time"`
	Type        PauseType  `json:"type" db:"type" yaml:"type"`
	Duration    *int       `json:"duration,omitempty" db:"duration" yaml:"duration"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at" yaml:"updated_at"`
}

// Closed reports whether the pause has ended.
func (p Pause) Closed() bool {
	return p.EndTime != nil
}

// TimeEntry is one working session for a user on a calendar date.
type TimeEntry struct {
	ID             string      `json:"id" db:"id" yaml:"id"`
	UserID         string      `json:"userId" db:"user_id" yaml:"user_id"`
	Date           string      `json:"date" db:"entry_date" yaml:"date"`
	ClockIn        time.Time   `json:"clockIn" db:"clock_in" yaml:"clock_in"`
	ClockOut       *time.Time  `json:"clockOut,omitempty" db:"clock_out" yaml:"clock_out"`
	Status         EntryStatus `json:"status" db:"status" yaml:"status"`
	TotalHours     *float64    `json:"totalHours,omitempty" db:"total_hours" yaml:"total_hours"`
	EditedManually bool        `json:"editedManually" db:"edited_manually" yaml:"edited_manually"`
	Notes          *string     `json:"notes,omitempty" db:"notes" yaml:"notes"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at" yaml:"updated_at"`
	Pauses         []Pause     `json:"pauses" db:"-" yaml:"pauses"`

	LaborStatus     DeliveryStatus `json:"laborStatus" db:"labor_status" yaml:"-"`
	LaborRetryCount int            `json:"laborRetryCount" db:"labor_retry_count" yaml:"-"`
	EmailStatus     DeliveryStatus `json:"emailStatus" db:"email_status" yaml:"-"`
	EmailRetryCount int            `json:"emailRetryCount" db:"email_retry_count" yaml:"-"`
}

// OpenPause returns the pause without an end time, if any.
func (e *TimeEntry) OpenPause() *Pause {
	for i := range e.Pauses {
		if !e.Pauses[i].Closed() {
			return &e.Pauses[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the entry and its pauses.
func (e *TimeEntry) Clone() *TimeEntry {
	if e == nil {
		return nil
	}
	c := *e
	if e.ClockOut != nil {
		t := *e.ClockOut
		c.ClockOut = &t
	}
	if e.TotalHours != nil {
		h := *e.TotalHours
		c.TotalHours = &h
	}
	if e.Notes != nil {
		n := *e.Notes
		c.Notes = &n
	}
	if e.Pauses != nil {
		c.Pauses = make([]Pause, len(e.Pauses))
		for i, p := range e.Pauses {
			c.Pauses[i] = *p.Clone()
		}
	}
	return &c
}

// Clone returns a deep copy of the pause.
func (p *Pause) Clone() *Pause {
	if p == nil {
		return nil
	}
	c := *p
	if p.EndTime != nil {
		t := *p.EndTime
		c.EndTime = &t
	}
	if p.Duration != nil {
		d := *p.Duration
		c.Duration = &d
	}
	return &c
}

// EntryUpdate carries the fields changed by a transition. Nil fields are left untouched.
type EntryUpdate struct {
	Status     *EntryStatus
	ClockOut   *time.Time
	TotalHours *float64
	Notes      *string
}

// DateRange is an inclusive range of calendar days in DateLayout. Empty bounds are open.
type DateRange struct {
	From string
	To   string
}

// Contains reports whether date falls within the range.
func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}

// RangeOf builds a DateRange covering the calendar days of from and to.
func RangeOf(from, to time.Time) DateRange {
	return DateRange{From: from.Format(DateLayout), To: to.Format(DateLayout)}
}

// TrackingState is the derived, in-memory projection of the user's current entry.
type TrackingState struct {
	IsWorking    bool       `json:"isWorking"`
	IsPaused     bool       `json:"isPaused"`
	CurrentEntry *TimeEntry `json:"currentEntry"`
	CurrentPause *Pause     `json:"currentPause"`
	ElapsedTime  int64      `json:"elapsedTime"`
	PausedTime   int64      `json:"pausedTime"`
}

// Clone returns a deep copy of the state.
func (s TrackingState) Clone() TrackingState {
	c := s
	c.CurrentEntry = s.CurrentEntry.Clone()
	c.CurrentPause = s.CurrentPause.Clone()
	return c
}
