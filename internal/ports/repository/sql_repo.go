package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"timetrack.service/internal/core/model"
)

const entryColumns = `id, user_id, entry_date, clock_in, clock_out, status, total_hours, edited_manually, notes,
	labor_status, labor_retry_count, email_status, email_retry_count, created_at, updated_at`

const pauseColumns = `id, time_entry_id, start_time, end_time, type, duration, created_at, updated_at`

// SQLRepository implements Repository on PostgreSQL or SQLite through sqlx.
// Queries use ? placeholders and are rebound for the connection's driver.
type SQLRepository struct {
	db *sqlx.DB // nil inside a transaction
	q  sqlx.ExtContext
}

// NewSQLRepository creates a repository over an open, migrated connection.
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db, q: db}
}

// RunInTx runs fn inside a database transaction. Nested calls join the outer transaction.
func (r *SQLRepository) RunInTx(ctx context.Context, fn func(Repository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLRepository{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// CreateEntry inserts an active entry.
func (r *SQLRepository) CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.user_id", userID))

	now := timestamp()
	entry := &model.TimeEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		ClockIn:     clockIn.UTC(),
		Status:      model.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pauses:      []model.Pause{},
		LaborStatus: model.DeliveryPending,
		EmailStatus: model.DeliveryPending,
	}

	query := r.q.Rebind(`INSERT INTO time_entries (id, user_id, entry_date, clock_in, status, edited_manually,
		labor_status, labor_retry_count, email_status, email_retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, 0, ?, ?)`)
	_, err := r.q.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.Date, entry.ClockIn, string(entry.Status), false,
		string(entry.LaborStatus), string(entry.EmailStatus), entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting time entry: %w", err)
	}
	return entry, nil
}

// UpdateEntry applies the non-nil fields of update and bumps updated_at.
func (r *SQLRepository) UpdateEntry(ctx context.Context, id string, update model.EntryUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{timestamp()}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.ClockOut != nil {
		sets = append(sets, "clock_out = ?")
		args = append(args, update.ClockOut.UTC())
	}
	if update.TotalHours != nil {
		sets = append(sets, "total_hours = ?")
		args = append(args, *update.TotalHours)
	}
	if update.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *update.Notes)
	}
	args = append(args, id)

	query := r.q.Rebind("UPDATE time_entries SET " + strings.Join(sets, ", ") + " WHERE id = ?")
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating time entry %s: %w", id, err)
	}
	return expectRow(res)
}

// QueryActiveEntries returns open entries, most recently created first.
func (r *SQLRepository) QueryActiveEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.user_id", userID))

	var entries []model.TimeEntry
	query := r.q.Rebind(`SELECT ` + entryColumns + ` FROM time_entries
		WHERE user_id = ? AND status IN ('active', 'paused')
		ORDER BY created_at DESC`)
	if err := sqlx.SelectContext(ctx, r.q, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("querying active entries: %w", err)
	}
	if err := r.attachPauses(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// QueryEntries returns the user's entries in rng, newest date first.
func (r *SQLRepository) QueryEntries(ctx context.Context, userID string, rng model.DateRange) ([]model.TimeEntry, error) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.user_id", userID))

	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id = ?`
	args := []any{userID}
	if rng.From != "" {
		query += " AND entry_date >= ?"
		args = append(args, rng.From)
	}
	if rng.To != "" {
		query += " AND entry_date <= ?"
		args = append(args, rng.To)
	}
	query += " ORDER BY entry_date DESC, clock_in DESC"

	var entries []model.TimeEntry
	if err := sqlx.SelectContext(ctx, r.q, &entries, r.q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	if err := r.attachPauses(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetEntry fetches one entry with its pauses.
func (r *SQLRepository) GetEntry(ctx context.Context, id string) (*model.TimeEntry, error) {
	var entry model.TimeEntry
	query := r.q.Rebind(`SELECT ` + entryColumns + ` FROM time_entries WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.q, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting time entry %s: %w", id, err)
	}

	entries := []model.TimeEntry{entry}
	if err := r.attachPauses(ctx, entries); err != nil {
		return nil, err
	}
	return &entries[0], nil
}

// DeleteEntry removes an entry and its pauses.
func (r *SQLRepository) DeleteEntry(ctx context.Context, id string) error {
	return r.RunInTx(ctx, func(repo Repository) error {
		tx := repo.(*SQLRepository)
		if _, err := tx.q.ExecContext(ctx, tx.q.Rebind(`DELETE FROM pauses WHERE time_entry_id = ?`), id); err != nil {
			return fmt.Errorf("deleting pauses of %s: %w", id, err)
		}
		res, err := tx.q.ExecContext(ctx, tx.q.Rebind(`DELETE FROM time_entries WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("deleting time entry %s: %w", id, err)
		}
		return expectRow(res)
	})
}

// CreatePause inserts an open pause.
func (r *SQLRepository) CreatePause(ctx context.Context, entryID string, start time.Time, pauseType model.PauseType) (*model.Pause, error) {
	now := timestamp()
	pause := &model.Pause{
		ID:          uuid.NewString(),
		TimeEntryID: entryID,
		StartTime:   start.UTC(),
		Type:        pauseType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := r.q.Rebind(`INSERT INTO pauses (id, time_entry_id, start_time, type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := r.q.ExecContext(ctx, query,
		pause.ID, pause.TimeEntryID, pause.StartTime, string(pause.Type), pause.CreatedAt, pause.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting pause: %w", err)
	}
	return pause, nil
}

// UpdatePause closes a pause.
func (r *SQLRepository) UpdatePause(ctx context.Context, id string, end time.Time, durationMinutes int) error {
	query := r.q.Rebind(`UPDATE pauses SET end_time = ?, duration = ?, updated_at = ? WHERE id = ?`)
	res, err := r.q.ExecContext(ctx, query, end.UTC(), durationMinutes, timestamp(), id)
	if err != nil {
		return fmt.Errorf("updating pause %s: %w", id, err)
	}
	return expectRow(res)
}

// UpdateLaborStatus updates the status and retry count for the labor sync job.
func (r *SQLRepository) UpdateLaborStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	query := r.q.Rebind(`UPDATE time_entries SET labor_status = ?, labor_retry_count = ? WHERE id = ?`)
	res, err := r.q.ExecContext(ctx, query, string(status), retryCount, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// UpdateEmailStatus updates the status and retry count for the summary email job.
func (r *SQLRepository) UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	query := r.q.Rebind(`UPDATE time_entries SET email_status = ?, email_retry_count = ? WHERE id = ?`)
	res, err := r.q.ExecContext(ctx, query, string(status), retryCount, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (r *SQLRepository) attachPauses(ctx context.Context, entries []model.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	query, args, err := sqlx.In(`SELECT `+pauseColumns+` FROM pauses WHERE time_entry_id IN (?) ORDER BY start_time`, ids)
	if err != nil {
		return fmt.Errorf("building pause query: %w", err)
	}

	var pauses []model.Pause
	if err := sqlx.SelectContext(ctx, r.q, &pauses, r.q.Rebind(query), args...); err != nil {
		return fmt.Errorf("querying pauses: %w", err)
	}

	byEntry := make(map[string][]model.Pause, len(entries))
	for _, p := range pauses {
		byEntry[p.TimeEntryID] = append(byEntry[p.TimeEntryID], p)
	}
	for i := range entries {
		entries[i].Pauses = byEntry[entries[i].ID]
		if entries[i].Pauses == nil {
			entries[i].Pauses = []model.Pause{}
		}
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func timestamp() time.Time {
	return time.Now().UTC()
}
