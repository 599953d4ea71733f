package tracking

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"timetrack.service/internal/ports/repository"
)

// Registry hosts one Store per signed-in user.
type Registry struct {
	repo repository.Repository
	opts []Option

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry. opts are applied to every store it creates.
func NewRegistry(repo repository.Repository, opts ...Option) *Registry {
	return &Registry{
		repo:   repo,
		opts:   opts,
		stores: make(map[string]*Store),
	}
}

// Acquire returns the user's store, creating and refreshing it on first use.
// A store whose first refresh fails is discarded so the next call retries.
// An ErrInvalidState refresh still hosts the store with the adopted entry.
func (r *Registry) Acquire(ctx context.Context, userID string) (*Store, error) {
	if userID == "" {
		return nil, ErrNoUserSignedIn
	}
	if s, ok := r.Lookup(userID); ok {
		return s, nil
	}

	s := NewStore(r.repo, userID, r.opts...)
	if _, err := s.RefreshState(ctx); err != nil {
		if !errors.Is(err, ErrInvalidState) {
			s.Close()
			return nil, err
		}
		log.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("Hosting store with inconsistent data")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.stores[userID]; ok {
		s.Close()
		return existing, nil
	}
	r.stores[userID] = s
	return s, nil
}

// Lookup returns the user's store if one is hosted.
func (r *Registry) Lookup(userID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[userID]
	return s, ok
}

// Release closes and forgets the user's store. It reports whether one was hosted.
func (r *Registry) Release(userID string) bool {
	r.mu.Lock()
	s, ok := r.stores[userID]
	delete(r.stores, userID)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Close closes every hosted store.
func (r *Registry) Close() {
	r.mu.Lock()
	stores := r.stores
	r.stores = make(map[string]*Store)
	r.mu.Unlock()

	for _, s := range stores {
		s.Close()
	}
}
