package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/pkg/errors"
)

// InMemoryStore is an in-memory implementation of Store
type InMemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	sessions map[string]Session
}

// NewInMemoryStore creates an empty in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// WithClock replaces the clock used to decide expiry on Get
func (r *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	r.now = now
	return r
}

// Get retrieves a session by id
func (r *InMemoryStore) Get(_ context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, errors.Wrap(errs.ErrSessionNotFound, "session id is required")
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return Session{}, errs.ErrSessionNotFound
	}
	if s.Expired(r.now()) {
		return Session{}, errs.ErrSessionExpired
	}
	return copySession(s), nil
}

// Upsert creates or replaces a session
func (r *InMemoryStore) Upsert(_ context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = copySession(s)
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *InMemoryStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// DeleteExpired evicts every session expired at now
func (r *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len is the number of stored sessions, expired or not
func (r *InMemoryStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryStore) Close() error { return nil }

func copySession(s Session) Session {
	if s.User != nil {
		s.User = identity.Claims(maps.Clone(map[string]any(s.User)))
	}
	return s
}
