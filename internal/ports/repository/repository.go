package repository

import (
	"context"
	"errors"
	"time"

	"timetrack.service/internal/core/model"
)

// ErrNotFound is returned when the requested entry or pause does not exist.
var ErrNotFound = errors.New("record not found")

// Repository is the persistence collaborator of the tracking store and the report service.
type Repository interface {
	CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error)
	UpdateEntry(ctx context.Context, id string, update model.EntryUpdate) error
	// QueryActiveEntries returns the user's active or paused entries, newest first, with pauses.
	QueryActiveEntries(ctx context.Context, userID string) ([]model.TimeEntry, error)
	CreatePause(ctx context.Context, entryID string, start time.Time, pauseType model.PauseType) (*model.Pause, error)
	UpdatePause(ctx context.Context, id string, end time.Time, durationMinutes int) error
	DeleteEntry(ctx context.Context, id string) error
	// QueryEntries returns the user's entries within r, date descending, with pauses.
	QueryEntries(ctx context.Context, userID string, r model.DateRange) ([]model.TimeEntry, error)
	GetEntry(ctx context.Context, id string) (*model.TimeEntry, error)
	UpdateLaborStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error
	UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error
	// RunInTx runs fn against a transactional view. Writes made through that view are
	// committed only when fn returns nil.
	RunInTx(ctx context.Context, fn func(Repository) error) error
}
