package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/repository"
)

func TestClockIn(t *testing.T) {
	clock := newFakeClock("09:00")
	s, repo := newTestStore(t, clock)
	ctx := context.Background()

	state, err := s.ClockIn(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsWorking)
	assert.False(t, state.IsPaused)
	require.NotNil(t, state.CurrentEntry)
	assert.Equal(t, model.StatusActive, state.CurrentEntry.Status)
	assert.Equal(t, "2025-03-10", state.CurrentEntry.Date)
	assert.Zero(t, state.ElapsedTime)
	assert.Zero(t, state.PausedTime)

	active, err := repo.QueryActiveEntries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, state.CurrentEntry.ID, active[0].ID)
}

func TestClockInTwiceFails(t *testing.T) {
	clock := newFakeClock("09:00")
	s, repo := newTestStore(t, clock)
	ctx := context.Background()

	first, err := s.ClockIn(ctx)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	state, err := s.ClockIn(ctx)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)
	assert.Equal(t, first.CurrentEntry.ID, state.CurrentEntry.ID)

	entries, err := repo.QueryEntries(ctx, "u1", model.DateRange{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClockInUsesLocalCalendarDay(t *testing.T) {
	clock := newFakeClock("23:30")
	tokyo := time.FixedZone("JST", 9*3600)
	s, _ := newTestStore(t, clock, WithLocation(tokyo))

	state, err := s.ClockIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", state.CurrentEntry.Date)
}

func TestOperationsWithoutEntry(t *testing.T) {
	s, _ := newTestStore(t, newFakeClock("09:00"))
	ctx := context.Background()

	_, err := s.ClockOut(ctx)
	assert.ErrorIs(t, err, ErrNoActiveEntry)
	_, err = s.StartPause(ctx, model.PauseMeal)
	assert.ErrorIs(t, err, ErrNoActiveEntry)
	_, err = s.EndPause(ctx)
	assert.ErrorIs(t, err, ErrNoActivePause)
}

func TestNoUserSignedIn(t *testing.T) {
	clock := newFakeClock("09:00")
	s := NewStore(repository.NewMemoryRepository(), "", WithClock(clock.Now))
	t.Cleanup(s.Close)
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	assert.ErrorIs(t, err, ErrNoUserSignedIn)
	_, err = s.RefreshState(ctx)
	assert.ErrorIs(t, err, ErrNoUserSignedIn)
}

func TestPauseLifecycle(t *testing.T) {
	clock := newFakeClock("09:00")
	s, repo := newTestStore(t, clock)
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)

	clock.Set("13:00")
	state, err := s.StartPause(ctx, model.PauseMeal)
	require.NoError(t, err)
	assert.True(t, state.IsPaused)
	assert.False(t, state.IsWorking)
	assert.Equal(t, model.StatusPaused, state.CurrentEntry.Status)
	require.NotNil(t, state.CurrentPause)
	assert.Equal(t, model.PauseMeal, state.CurrentPause.Type)
	assert.Nil(t, state.CurrentPause.EndTime)
	assert.Len(t, state.CurrentEntry.Pauses, 1)

	clock.Advance(time.Minute)
	_, err = s.StartPause(ctx, model.PauseBreak)
	assert.ErrorIs(t, err, ErrPauseAlreadyOpen)

	clock.Set("13:30")
	clock.Advance(20 * time.Second)
	state, err = s.EndPause(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsWorking)
	assert.False(t, state.IsPaused)
	assert.Nil(t, state.CurrentPause)
	assert.Equal(t, model.StatusActive, state.CurrentEntry.Status)
	assert.Equal(t, int64(30*60+20), state.PausedTime)

	stored, err := repo.GetEntry(ctx, state.CurrentEntry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, stored.Status)
	require.Len(t, stored.Pauses, 1)
	require.NotNil(t, stored.Pauses[0].Duration)
	assert.Equal(t, 30, *stored.Pauses[0].Duration)

	_, err = s.EndPause(ctx)
	assert.ErrorIs(t, err, ErrNoActivePause)
}

func TestStartPauseRejectsUnknownType(t *testing.T) {
	s, _ := newTestStore(t, newFakeClock("09:00"))
	_, err := s.ClockIn(context.Background())
	require.NoError(t, err)

	_, err = s.StartPause(context.Background(), model.PauseType("nap"))
	assert.ErrorIs(t, err, model.ErrInvalidPauseType)
	assert.False(t, s.State().IsPaused)
}

func TestClockOutExcludesPauses(t *testing.T) {
	clock := newFakeClock("09:00")
	pub := &recordingPublisher{}
	s, repo := newTestStore(t, clock, WithPublisher(pub))
	ctx := context.Background()

	in, err := s.ClockIn(ctx)
	require.NoError(t, err)
	entryID := in.CurrentEntry.ID

	clock.Set("13:00")
	_, err = s.StartPause(ctx, model.PauseMeal)
	require.NoError(t, err)
	clock.Set("13:30")
	_, err = s.EndPause(ctx)
	require.NoError(t, err)

	clock.Set("17:30")
	state, err := s.ClockOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TrackingState{}, state)

	stored, err := repo.GetEntry(ctx, entryID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	require.NotNil(t, stored.ClockOut)
	assert.True(t, stored.ClockOut.Equal(at("17:30")))
	require.NotNil(t, stored.TotalHours)
	assert.InDelta(t, 8.0, *stored.TotalHours, 1e-9)

	require.Len(t, pub.events, 1)
	assert.Equal(t, entryID, pub.events[0].TimeEntryID)
	assert.InDelta(t, 8.0, pub.events[0].TotalHours, 1e-9)
	assert.Equal(t, int64(30), pub.events[0].PauseMinutes)
}

func TestClockOutClosesOpenPause(t *testing.T) {
	clock := newFakeClock("09:00")
	s, repo := newTestStore(t, clock)
	ctx := context.Background()

	in, err := s.ClockIn(ctx)
	require.NoError(t, err)
	clock.Set("16:00")
	_, err = s.StartPause(ctx, model.PauseBreak)
	require.NoError(t, err)

	clock.Set("17:00")
	_, err = s.ClockOut(ctx)
	require.NoError(t, err)

	stored, err := repo.GetEntry(ctx, in.CurrentEntry.ID)
	require.NoError(t, err)
	require.Len(t, stored.Pauses, 1)
	pause := stored.Pauses[0]
	require.NotNil(t, pause.EndTime)
	assert.True(t, pause.EndTime.Equal(*stored.ClockOut))
	assert.Equal(t, 60, *pause.Duration)
	assert.InDelta(t, 7.0, *stored.TotalHours, 1e-9)

	active, err := repo.QueryActiveEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestClockOutPublishFailureIsNotReturned(t *testing.T) {
	clock := newFakeClock("09:00")
	pub := &recordingPublisher{err: errors.New("sqs down")}
	s, _ := newTestStore(t, clock, WithPublisher(pub))
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)
	clock.Set("10:00")
	_, err = s.ClockOut(ctx)
	assert.NoError(t, err)
	assert.Len(t, pub.events, 1)
}

func TestPersistenceFailureLeavesStateUnchanged(t *testing.T) {
	clock := newFakeClock("09:00")
	mem := repository.NewMemoryRepository(repository.WithMemoryClock(clock.Now))
	repo := &failingRepo{Repository: mem, failOn: map[string]bool{}}
	s := newStoreOver(t, repo, clock)
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)
	clock.Set("12:00")
	paused, err := s.StartPause(ctx, model.PauseMeal)
	require.NoError(t, err)

	repo.failOn["UpdateEntry"] = true
	clock.Set("17:00")
	state, err := s.ClockOut(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, paused, state)
	assert.Equal(t, paused, s.State())

	// The pause close was rolled back with the failed completion.
	stored, err := mem.GetEntry(ctx, paused.CurrentEntry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, stored.Status)
	assert.Nil(t, stored.Pauses[0].EndTime)

	_, err = s.EndPause(ctx)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.True(t, s.State().IsPaused)
}

func TestClockInPersistenceFailure(t *testing.T) {
	clock := newFakeClock("09:00")
	repo := &failingRepo{Repository: repository.NewMemoryRepository(), failOn: map[string]bool{"CreateEntry": true}}
	s := newStoreOver(t, repo, clock)

	state, err := s.ClockIn(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errBackend, pe.Err)
	assert.Equal(t, model.TrackingState{}, state)
}

func TestRefreshState(t *testing.T) {
	clock := newFakeClock("15:00")
	s, repo := newTestStore(t, clock)

	closedEnd := at("11:15")
	fifteen := 15
	repo.Seed(model.TimeEntry{
		ID:        "e1",
		UserID:    "u1",
		Date:      "2025-03-10",
		ClockIn:   at("09:00"),
		Status:    model.StatusPaused,
		CreatedAt: at("09:00"),
		Pauses: []model.Pause{
			{ID: "p1", TimeEntryID: "e1", StartTime: at("11:00"), EndTime: &closedEnd, Type: model.PauseBreak, Duration: &fifteen},
			{ID: "p2", TimeEntryID: "e1", StartTime: at("14:00"), Type: model.PauseMeal},
		},
	})

	state, err := s.RefreshState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsPaused)
	assert.False(t, state.IsWorking)
	require.NotNil(t, state.CurrentPause)
	assert.Equal(t, "p2", state.CurrentPause.ID)
	assert.Equal(t, int64(6*3600), state.ElapsedTime)
	assert.Equal(t, int64(15*60+60*60), state.PausedTime)
}

func TestRefreshStateIdle(t *testing.T) {
	s, _ := newTestStore(t, newFakeClock("09:00"))
	state, err := s.RefreshState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.TrackingState{}, state)
}

func TestRefreshStateMultipleOpenEntries(t *testing.T) {
	clock := newFakeClock("12:00")
	s, repo := newTestStore(t, clock)
	repo.Seed(
		model.TimeEntry{ID: "older", UserID: "u1", Date: "2025-03-10", ClockIn: at("08:00"), Status: model.StatusActive, CreatedAt: at("08:00")},
		model.TimeEntry{ID: "newer", UserID: "u1", Date: "2025-03-10", ClockIn: at("10:00"), Status: model.StatusActive, CreatedAt: at("10:00")},
	)

	state, err := s.RefreshState(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	require.NotNil(t, state.CurrentEntry)
	assert.Equal(t, "newer", state.CurrentEntry.ID)
	assert.Equal(t, int64(2*3600), state.ElapsedTime)
}

func TestRefreshStateStatusMismatch(t *testing.T) {
	s, repo := newTestStore(t, newFakeClock("12:00"))
	repo.Seed(model.TimeEntry{ID: "e1", UserID: "u1", Date: "2025-03-10", ClockIn: at("08:00"), Status: model.StatusPaused, CreatedAt: at("08:00")})

	state, err := s.RefreshState(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.True(t, state.IsWorking)
}

func TestRefreshStatePersistenceFailureDegradesToIdle(t *testing.T) {
	clock := newFakeClock("09:00")
	repo := &failingRepo{Repository: repository.NewMemoryRepository(), failOn: map[string]bool{}}
	s := newStoreOver(t, repo, clock)
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)

	repo.failOn["QueryActiveEntries"] = true
	state, err := s.RefreshState(ctx)
	assert.ErrorIs(t, err, ErrPersistenceFailure)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, model.TrackingState{}, state)
	assert.False(t, s.elapsedTicker.Running())

	repo.failOn["QueryActiveEntries"] = false
	state, err = s.RefreshState(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsWorking)
}

func TestOverlappingOperationFails(t *testing.T) {
	clock := newFakeClock("09:00")
	repo := &blockingRepo{
		Repository: repository.NewMemoryRepository(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	s := newStoreOver(t, repo, clock)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.ClockIn(ctx)
		done <- err
	}()

	<-repo.entered
	_, err := s.ClockOut(ctx)
	assert.ErrorIs(t, err, ErrOperationInProgress)

	close(repo.release)
	require.NoError(t, <-done)
	assert.True(t, s.State().IsWorking)
}

func TestTicksUpdateDerivedDurations(t *testing.T) {
	clock := newFakeClock("09:00")
	s, _ := newTestStore(t, clock)
	ctx := context.Background()

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)
	assert.True(t, s.elapsedTicker.Running())
	assert.False(t, s.pauseTicker.Running())

	clock.Advance(90 * time.Second)
	s.tickElapsed()
	assert.Equal(t, int64(90), s.State().ElapsedTime)

	_, err = s.StartPause(ctx, model.PauseOther)
	require.NoError(t, err)
	assert.True(t, s.pauseTicker.Running())

	clock.Advance(45 * time.Second)
	s.tickPause()
	s.tickElapsed()
	state := s.State()
	assert.Equal(t, int64(45), state.PausedTime)
	assert.Equal(t, int64(135), state.ElapsedTime)

	_, err = s.EndPause(ctx)
	require.NoError(t, err)
	assert.False(t, s.pauseTicker.Running())

	clock.Advance(time.Minute)
	s.tickPause()
	assert.Equal(t, int64(45), s.State().PausedTime)

	_, err = s.ClockOut(ctx)
	require.NoError(t, err)
	assert.False(t, s.elapsedTicker.Running())

	s.tickElapsed()
	assert.Equal(t, model.TrackingState{}, s.State())
}

func TestLiveTickerNotifiesSubscribers(t *testing.T) {
	clock := newFakeClock("09:00")
	s, _ := newTestStore(t, clock, WithTickInterval(5*time.Millisecond))

	updates, cancel := s.Subscribe(16)
	defer cancel()

	_, err := s.ClockIn(context.Background())
	require.NoError(t, err)
	first := <-updates
	assert.Zero(t, first.ElapsedTime)

	clock.Advance(10 * time.Second)
	require.Eventually(t, func() bool {
		select {
		case st := <-updates:
			return st.ElapsedTime == 10
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSubscribeAndClose(t *testing.T) {
	s, _ := newTestStore(t, newFakeClock("09:00"))
	ctx := context.Background()

	updates, cancel := s.Subscribe(4)
	other, _ := s.Subscribe(0)

	_, err := s.ClockIn(ctx)
	require.NoError(t, err)
	st := <-updates
	assert.True(t, st.IsWorking)

	cancel()
	_, ok := <-updates
	assert.False(t, ok)
	cancel()

	s.Close()
	// other has buffer 1 and already holds the clock-in update.
	<-other
	_, ok = <-other
	assert.False(t, ok)
	assert.False(t, s.elapsedTicker.Running())

	_, err = s.ClockOut(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)

	late, _ := s.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestStateIsACopy(t *testing.T) {
	s, _ := newTestStore(t, newFakeClock("09:00"))
	st, err := s.ClockIn(context.Background())
	require.NoError(t, err)

	st.CurrentEntry.Status = model.StatusCompleted
	assert.Equal(t, model.StatusActive, s.State().CurrentEntry.Status)
}

func TestIsStateError(t *testing.T) {
	assert.True(t, IsStateError(ErrNoActiveEntry))
	assert.True(t, IsStateError(errors.Join(ErrInvalidState, errBackend)))
	assert.False(t, IsStateError(&PersistenceError{Op: "x", Err: errBackend}))
	assert.False(t, IsStateError(ErrNoUserSignedIn))
}
