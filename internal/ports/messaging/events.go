package messaging

import "time"

// ShiftCompletedEvent is the JSON payload sent to the labor and email queues after clock-out.
type ShiftCompletedEvent struct {
	TimeEntryID  string    `json:"timeEntryId"`
	UserID       string    `json:"userId"`
	Date         string    `json:"date"`
	ClockIn      time.Time `json:"clockIn"`
	ClockOut     time.Time `json:"clockOut"`
	TotalHours   float64   `json:"totalHours"`
	PauseMinutes int64     `json:"pauseMinutes"`
}
