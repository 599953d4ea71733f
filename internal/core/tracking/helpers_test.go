package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"timetrack.service/internal/core/model"
	"timetrack.service/internal/ports/messaging"
	"timetrack.service/internal/ports/repository"
)

var errBackend = errors.New("backend unavailable")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(hhmm string) *fakeClock {
	return &fakeClock{now: at(hhmm)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(hhmm string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at(hhmm)
}

func at(hhmm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", "2025-03-10 "+hhmm, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// newTestStore returns a store over a memory repository with slow tickers, so tests
// drive ticks by hand.
func newTestStore(t *testing.T, clock *fakeClock, opts ...Option) (*Store, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository(repository.WithMemoryClock(clock.Now))
	s := newStoreOver(t, repo, clock, opts...)
	return s, repo
}

func newStoreOver(t *testing.T, repo repository.Repository, clock *fakeClock, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithClock(clock.Now),
		WithTickInterval(time.Hour),
		WithLocation(time.UTC),
	}, opts...)
	s := NewStore(repo, "u1", opts...)
	t.Cleanup(s.Close)
	return s
}

// failingRepo fails the named operations, inside transactions too.
type failingRepo struct {
	repository.Repository
	failOn map[string]bool
}

func (f *failingRepo) RunInTx(ctx context.Context, fn func(repository.Repository) error) error {
	return f.Repository.RunInTx(ctx, func(tx repository.Repository) error {
		return fn(&failingRepo{Repository: tx, failOn: f.failOn})
	})
}

func (f *failingRepo) CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error) {
	if f.failOn["CreateEntry"] {
		return nil, errBackend
	}
	return f.Repository.CreateEntry(ctx, userID, date, clockIn)
}

func (f *failingRepo) UpdateEntry(ctx context.Context, id string, update model.EntryUpdate) error {
	if f.failOn["UpdateEntry"] {
		return errBackend
	}
	return f.Repository.UpdateEntry(ctx, id, update)
}

func (f *failingRepo) QueryActiveEntries(ctx context.Context, userID string) ([]model.TimeEntry, error) {
	if f.failOn["QueryActiveEntries"] {
		return nil, errBackend
	}
	return f.Repository.QueryActiveEntries(ctx, userID)
}

// blockingRepo holds CreateEntry until release is closed.
type blockingRepo struct {
	repository.Repository
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRepo) CreateEntry(ctx context.Context, userID, date string, clockIn time.Time) (*model.TimeEntry, error) {
	close(b.entered)
	<-b.release
	return b.Repository.CreateEntry(ctx, userID, date, clockIn)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.ShiftCompletedEvent
	err    error
}

func (p *recordingPublisher) PublishShiftCompleted(ctx context.Context, event messaging.ShiftCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}
