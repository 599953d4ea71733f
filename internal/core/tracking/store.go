// Package tracking holds the per-user state machine for clocking in and out,
// pausing and resuming, together with the tickers that keep its derived
// durations current.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/core/calc"
	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/messaging"
	"timetrack.service/internal/ports/repository"
)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTickInterval sets the period of the elapsed and pause tickers.
func WithTickInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// WithLocation sets the time zone an entry's calendar date is taken in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

// WithPublisher announces completed shifts after clock-out.
func WithPublisher(p messaging.ShiftPublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// Store is the in-memory tracking state of one user. Transitions write through
// the repository first and update local state only after the write is acknowledged.
// Only one transition runs at a time; an overlapping call fails with
// ErrOperationInProgress.
type Store struct {
	repo      repository.Repository
	userID    string
	now       func() time.Time
	loc       *time.Location
	interval  time.Duration
	publisher messaging.ShiftPublisher

	opMu sync.Mutex

	mu          sync.Mutex
	state       model.TrackingState
	closed      bool
	subscribers map[int]chan model.TrackingState
	nextSubID   int

	elapsedTicker *Ticker
	pauseTicker   *Ticker
}

// NewStore creates an idle store for userID. Call RefreshState to load an open entry.
func NewStore(repo repository.Repository, userID string, opts ...Option) *Store {
	s := &Store{
		repo:        repo,
		userID:      userID,
		now:         time.Now,
		loc:         time.Local,
		interval:    time.Second,
		subscribers: make(map[int]chan model.TrackingState),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.elapsedTicker = NewTicker(s.interval, s.tickElapsed)
	s.pauseTicker = NewTicker(s.interval, s.tickPause)
	return s
}

// UserID returns the user this store tracks.
func (s *Store) UserID() string {
	return s.userID
}

// State returns a copy of the current state.
func (s *Store) State() model.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ClockIn starts a new entry.
func (s *Store) ClockIn(ctx context.Context) (model.TrackingState, error) {
	done, err := s.begin()
	if err != nil {
		return s.State(), err
	}
	defer done()

	if s.currentEntry() != nil {
		return s.State(), ErrSessionAlreadyActive
	}

	now := s.now()
	entry, err := s.repo.CreateEntry(ctx, s.userID, now.In(s.loc).Format(model.DateLayout), now)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", s.userID).Msg("Failed to create time entry")
		return s.State(), persistenceError("create entry", err)
	}

	log.Ctx(ctx).Info().Str("user_id", s.userID).Str("entry_id", entry.ID).Msg("Clocked in")
	return s.apply(deriveState(entry, now)), nil
}

// ClockOut completes the current entry. An open pause is closed at the same instant,
// in the same transaction.
func (s *Store) ClockOut(ctx context.Context) (model.TrackingState, error) {
	done, err := s.begin()
	if err != nil {
		return s.State(), err
	}
	defer done()

	entry := s.currentEntry()
	if entry == nil {
		return s.State(), ErrNoActiveEntry
	}

	now := s.now()
	err = s.repo.RunInTx(ctx, func(tx repository.Repository) error {
		if pause := entry.OpenPause(); pause != nil {
			if err := closePause(ctx, tx, pause, now); err != nil {
				return err
			}
		}

		status := model.StatusCompleted
		entry.ClockOut = &now
		hours := calc.WorkedHours(*entry)
		entry.Status = status
		entry.TotalHours = &hours
		if err := tx.UpdateEntry(ctx, entry.ID, model.EntryUpdate{
			Status:     &status,
			ClockOut:   &now,
			TotalHours: &hours,
		}); err != nil {
			return fmt.Errorf("completing entry: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", s.userID).Str("entry_id", entry.ID).Msg("Failed to clock out")
		return s.State(), persistenceError("clock out", err)
	}

	log.Ctx(ctx).Info().
		Str("user_id", s.userID).
		Str("entry_id", entry.ID).
		Float64("total_hours", *entry.TotalHours).
		Msg("Clocked out")

	state := s.apply(model.TrackingState{})
	s.publishCompleted(ctx, *entry)
	return state, nil
}

// StartPause opens a pause of the given type on the current entry.
func (s *Store) StartPause(ctx context.Context, pauseType model.PauseType) (model.TrackingState, error) {
	done, err := s.begin()
	if err != nil {
		return s.State(), err
	}
	defer done()

	if _, err := model.ParsePauseType(string(pauseType)); err != nil {
		return s.State(), err
	}

	entry := s.currentEntry()
	if entry == nil {
		return s.State(), ErrNoActiveEntry
	}
	if entry.OpenPause() != nil {
		return s.State(), ErrPauseAlreadyOpen
	}

	now := s.now()
	var pause *model.Pause
	err = s.repo.RunInTx(ctx, func(tx repository.Repository) error {
		p, err := tx.CreatePause(ctx, entry.ID, now, pauseType)
		if err != nil {
			return fmt.Errorf("creating pause: %w", err)
		}
		status := model.StatusPaused
		if err := tx.UpdateEntry(ctx, entry.ID, model.EntryUpdate{Status: &status}); err != nil {
			return fmt.Errorf("marking entry paused: %w", err)
		}
		pause = p
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", s.userID).Str("entry_id", entry.ID).Msg("Failed to start pause")
		return s.State(), persistenceError("start pause", err)
	}

	entry.Status = model.StatusPaused
	entry.Pauses = append(entry.Pauses, *pause)

	log.Ctx(ctx).Info().Str("user_id", s.userID).Str("pause_id", pause.ID).Str("type", string(pauseType)).Msg("Pause started")
	return s.apply(deriveState(entry, now)), nil
}

// EndPause closes the open pause and resumes work.
func (s *Store) EndPause(ctx context.Context) (model.TrackingState, error) {
	done, err := s.begin()
	if err != nil {
		return s.State(), err
	}
	defer done()

	entry := s.currentEntry()
	if entry == nil {
		return s.State(), ErrNoActivePause
	}
	pause := entry.OpenPause()
	if pause == nil {
		return s.State(), ErrNoActivePause
	}

	now := s.now()
	err = s.repo.RunInTx(ctx, func(tx repository.Repository) error {
		if err := closePause(ctx, tx, pause, now); err != nil {
			return err
		}
		status := model.StatusActive
		if err := tx.UpdateEntry(ctx, entry.ID, model.EntryUpdate{Status: &status}); err != nil {
			return fmt.Errorf("marking entry active: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", s.userID).Str("pause_id", pause.ID).Msg("Failed to end pause")
		return s.State(), persistenceError("end pause", err)
	}
	entry.Status = model.StatusActive

	log.Ctx(ctx).Info().Str("user_id", s.userID).Str("pause_id", pause.ID).Int("duration_min", *pause.Duration).Msg("Pause ended")
	return s.apply(deriveState(entry, now)), nil
}

// RefreshState reloads the current entry from the repository. If several open entries
// exist the most recently created one is adopted and the returned error wraps
// ErrInvalidState. On a repository failure the state falls back to idle.
func (s *Store) RefreshState(ctx context.Context) (model.TrackingState, error) {
	done, err := s.begin()
	if err != nil {
		return s.State(), err
	}
	defer done()

	now := s.now()
	entries, err := s.repo.QueryActiveEntries(ctx, s.userID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", s.userID).Msg("Failed to refresh tracking state, falling back to idle")
		return s.apply(model.TrackingState{}), persistenceError("query active entries", err)
	}
	if len(entries) == 0 {
		return s.apply(model.TrackingState{}), nil
	}

	entry := entries[0]
	state := s.apply(deriveState(&entry, now))

	if len(entries) > 1 {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}
		log.Ctx(ctx).Warn().Str("user_id", s.userID).Strs("entry_ids", ids).Msg("Multiple open entries found, adopting the newest")
		return state, fmt.Errorf("%w: user %s has %d open entries, adopted %s", ErrInvalidState, s.userID, len(entries), entry.ID)
	}
	if paused := entry.OpenPause() != nil; paused != (entry.Status == model.StatusPaused) {
		log.Ctx(ctx).Warn().Str("user_id", s.userID).Str("entry_id", entry.ID).Str("status", string(entry.Status)).Msg("Entry status disagrees with its pauses")
		return state, fmt.Errorf("%w: entry %s has status %s and open pause %t", ErrInvalidState, entry.ID, entry.Status, paused)
	}
	return state, nil
}

// Subscribe registers an observer of state changes and ticks. Sends never block:
// a full channel misses the update. The cancel func unregisters and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan model.TrackingState, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan model.TrackingState, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
	}
	return ch, cancel
}

// Close stops both tickers and closes every subscriber channel. Operations on a
// closed store fail with ErrStoreClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.elapsedTicker.Stop()
	s.pauseTicker.Stop()
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Store) begin() (func(), error) {
	if s.userID == "" {
		return nil, ErrNoUserSignedIn
	}
	if !s.opMu.TryLock() {
		return nil, ErrOperationInProgress
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.opMu.Unlock()
		return nil, ErrStoreClosed
	}
	return s.opMu.Unlock, nil
}

// currentEntry returns a copy of the current entry. Only transitions replace the
// entry, so the copy stays valid while opMu is held.
func (s *Store) currentEntry() *model.TimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentEntry.Clone()
}

func (s *Store) apply(state model.TrackingState) model.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.syncTickersLocked()
	s.notifyLocked()
	return s.state.Clone()
}

func (s *Store) syncTickersLocked() {
	if !s.closed && s.state.CurrentEntry != nil {
		s.elapsedTicker.Start()
	} else {
		s.elapsedTicker.Stop()
	}
	if !s.closed && s.state.CurrentPause != nil {
		s.pauseTicker.Start()
	} else {
		s.pauseTicker.Stop()
	}
}

func (s *Store) tickElapsed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.CurrentEntry == nil {
		return
	}
	s.state.ElapsedTime = calc.ElapsedSeconds(s.state.CurrentEntry.ClockIn, s.now())
	s.notifyLocked()
}

func (s *Store) tickPause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.CurrentEntry == nil || s.state.CurrentPause == nil {
		return
	}
	s.state.PausedTime = calc.PauseDurationSeconds(s.state.CurrentEntry.Pauses) +
		calc.ElapsedSeconds(s.state.CurrentPause.StartTime, s.now())
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	if s.closed {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- s.state.Clone():
		default:
		}
	}
}

func (s *Store) publishCompleted(ctx context.Context, entry model.TimeEntry) {
	if s.publisher == nil {
		return
	}
	event := messaging.ShiftCompletedEvent{
		TimeEntryID:  entry.ID,
		UserID:       entry.UserID,
		Date:         entry.Date,
		ClockIn:      entry.ClockIn,
		ClockOut:     *entry.ClockOut,
		TotalHours:   *entry.TotalHours,
		PauseMinutes: calc.PauseDurationMinutes(entry.Pauses),
	}
	if err := s.publisher.PublishShiftCompleted(ctx, event); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to publish shift completed event")
	}
}

// closePause persists the end of pause at end and mirrors it on pause.
func closePause(ctx context.Context, tx repository.Repository, pause *model.Pause, end time.Time) error {
	duration := calc.RoundedMinutes(pause.StartTime, end)
	if err := tx.UpdatePause(ctx, pause.ID, end, duration); err != nil {
		return fmt.Errorf("closing pause %s: %w", pause.ID, err)
	}
	pause.EndTime = &end
	pause.Duration = &duration
	return nil
}

// deriveState projects entry onto a TrackingState at now. A nil entry is idle.
func deriveState(entry *model.TimeEntry, now time.Time) model.TrackingState {
	if entry == nil {
		return model.TrackingState{}
	}
	state := model.TrackingState{
		CurrentEntry: entry,
		ElapsedTime:  calc.ElapsedSeconds(entry.ClockIn, now),
		PausedTime:   calc.PauseDurationSeconds(entry.Pauses),
	}
	if pause := entry.OpenPause(); pause != nil {
		state.IsPaused = true
		state.CurrentPause = pause.Clone()
		state.PausedTime += calc.ElapsedSeconds(pause.StartTime, now)
	} else {
		state.IsWorking = true
	}
	return state
}

// IsStateError reports whether err rejects a transition because of the current state
// rather than a failure.
func IsStateError(err error) bool {
	for _, target := range []error{
		ErrSessionAlreadyActive, ErrNoActiveEntry, ErrNoActivePause,
		ErrPauseAlreadyOpen, ErrInvalidState, ErrOperationInProgress,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
