package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"timetrack.service/internal/core/model"
)

// MemoryRepository is an in-process Repository for demo and offline mode.
// It enforces one open entry per user and one open pause per entry.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
	now   func() time.Time
}

// MemoryOption configures a MemoryRepository.
type MemoryOption func(*MemoryRepository)

// WithMemoryClock overrides the clock used for created_at/updated_at.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(r *MemoryRepository) { r.now = now }
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository(opts ...MemoryOption) *MemoryRepository {
	r := &MemoryRepository{
		state: newMemoryState(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed stores entries as given, pauses included, without checking invariants.
func (r *MemoryRepository) Seed(entries ...model.TimeEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.state.put(e.Clone())
	}
}

func (r *MemoryRepository) view() *memoryTx {
	return &memoryTx{state: r.state, now: r.now}
}

// RunInTx runs fn against a copy of the data and keeps the copy only if fn succeeds.
func (r *MemoryRepository) RunInTx(ctx context.Context, fn func(Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{state: r.state.clone(), now: r.now}
	if err := fn(tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *MemoryRepository) CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().CreateEntry(ctx, userID, date, clockIn)
}

func (r *MemoryRepository) UpdateEntry(ctx context.Context, id string, update model.EntryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().UpdateEntry(ctx, id, update)
}

func (r *MemoryRepository) QueryActiveEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().QueryActiveEntries(ctx, userID)
}

func (r *MemoryRepository) CreatePause(ctx context.Context, entryID string, start time.Time, pauseType model.PauseType) (*model.Pause, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().CreatePause(ctx, entryID, start, pauseType)
}

func (r *MemoryRepository) UpdatePause(ctx context.Context, id string, end time.Time, durationMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().UpdatePause(ctx, id, end, durationMinutes)
}

func (r *MemoryRepository) DeleteEntry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().DeleteEntry(ctx, id)
}

func (r *MemoryRepository) QueryEntries(ctx context.Context, userID string, rng model.DateRange) ([]model.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().QueryEntries(ctx, userID, rng)
}

func (r *MemoryRepository) GetEntry(ctx context.Context, id string) (*model.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().GetEntry(ctx, id)
}

func (r *MemoryRepository) UpdateLaborStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().UpdateLaborStatus(ctx, id, status, retryCount)
}

func (r *MemoryRepository) UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().UpdateEmailStatus(ctx, id, status, retryCount)
}

type memoryState struct {
	entries map[string]*model.TimeEntry
	// pause ID -> entry ID
	pauses map[string]string
}

func newMemoryState() *memoryState {
	return &memoryState{
		entries: make(map[string]*model.TimeEntry),
		pauses:  make(map[string]string),
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for _, e := range s.entries {
		c.put(e.Clone())
	}
	return c
}

func (s *memoryState) put(e *model.TimeEntry) {
	if e.Pauses == nil {
		e.Pauses = []model.Pause{}
	}
	s.entries[e.ID] = e
	for _, p := range e.Pauses {
		s.pauses[p.ID] = e.ID
	}
}

// memoryTx operates on a memoryState without locking. The caller holds the lock.
type memoryTx struct {
	state *memoryState
	now   func() time.Time
}

func (t *memoryTx) RunInTx(ctx context.Context, fn func(Repository) error) error {
	return fn(t)
}

func (t *memoryTx) CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error) {
	for _, e := range t.state.entries {
		if e.UserID == userID && e.Status.Open() {
			return nil, fmt.Errorf("user %s already has open entry %s", userID, e.ID)
		}
	}

	now := t.now()
	entry := &model.TimeEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		ClockIn:     clockIn,
		Status:      model.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		Pauses:      []model.Pause{},
		LaborStatus: model.DeliveryPending,
		EmailStatus: model.DeliveryPending,
	}
	t.state.put(entry)
	return entry.Clone(), nil
}

func (t *memoryTx) UpdateEntry(ctx context.Context, id string, update model.EntryUpdate) error {
	e, ok := t.state.entries[id]
	if !ok {
		return ErrNotFound
	}
	if update.Status != nil && update.Status.Open() && !e.Status.Open() {
		for _, other := range t.state.entries {
			if other.ID != id && other.UserID == e.UserID && other.Status.Open() {
				return fmt.Errorf("user %s already has open entry %s", e.UserID, other.ID)
			}
		}
	}

	if update.Status != nil {
		e.Status = *update.Status
	}
	if update.ClockOut != nil {
		out := *update.ClockOut
		e.ClockOut = &out
	}
	if update.TotalHours != nil {
		h := *update.TotalHours
		e.TotalHours = &h
	}
	if update.Notes != nil {
		n := *update.Notes
		e.Notes = &n
	}
	e.UpdatedAt = t.now()
	return nil
}

func (t *memoryTx) QueryActiveEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	var out []model.TimeEntry
	for _, e := range t.state.entries {
		if e.UserID == userID && e.Status.Open() {
			out = append(out, *e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (t *memoryTx) QueryEntries(ctx context.Context, userID string, rng model.DateRange) ([]model.TimeEntry, error) {
	var out []model.TimeEntry
	for _, e := range t.state.entries {
		if e.UserID == userID && rng.Contains(e.Date) {
			out = append(out, *e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ClockIn.After(out[j].ClockIn)
	})
	return out, nil
}

func (t *memoryTx) GetEntry(ctx context.Context, id string) (*model.TimeEntry, error) {
	e, ok := t.state.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (t *memoryTx) DeleteEntry(ctx context.Context, id string) error {
	e, ok := t.state.entries[id]
	if !ok {
		return ErrNotFound
	}
	for _, p := range e.Pauses {
		delete(t.state.pauses, p.ID)
	}
	delete(t.state.entries, id)
	return nil
}

func (t *memoryTx) CreatePause(ctx context.Context, entryID string, start time.Time, pauseType model.PauseType) (*model.Pause, error) {
	e, ok := t.state.entries[entryID]
	if !ok {
		return nil, ErrNotFound
	}
	if open := e.OpenPause(); open != nil {
		return nil, fmt.Errorf("entry %s already has open pause %s", entryID, open.ID)
	}

	now := t.now()
	pause := model.Pause{
		ID:          uuid.NewString(),
		TimeEntryID: entryID,
		StartTime:   start,
		Type:        pauseType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.Pauses = append(e.Pauses, pause)
	t.state.pauses[pause.ID] = entryID
	return pause.Clone(), nil
}

func (t *memoryTx) UpdatePause(ctx context.Context, id string, end time.Time, durationMinutes int) error {
	entryID, ok := t.state.pauses[id]
	if !ok {
		return ErrNotFound
	}
	e := t.state.entries[entryID]
	for i := range e.Pauses {
		if e.Pauses[i].ID != id {
			continue
		}
		p := &e.Pauses[i]
		p.EndTime = &end
		p.Duration = &durationMinutes
		p.UpdatedAt = t.now()
		return nil
	}
	return ErrNotFound
}

func (t *memoryTx) UpdateLaborStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	e, ok := t.state.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.LaborStatus = status
	e.LaborRetryCount = retryCount
	return nil
}

func (t *memoryTx) UpdateEmailStatus(ctx context.Context, id string, status model.DeliveryStatus, retryCount int) error {
	e, ok := t.state.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.EmailStatus = status
	e.EmailRetryCount = retryCount
	return nil
}
