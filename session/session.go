// Package session holds server-side login sessions. The browser only ever
// carries a signed reference to a record; claims stay in the store.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-entra-webapp/identity"
)

type Session struct {
	ID        string
	User      identity.Claims
	CreatedAt time.Time
	ExpiresAt time.Time
	LastSeen  time.Time
}

// New starts a session for user with a fresh identifier.
func New(user identity.Claims, now time.Time, maxAge time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(maxAge),
		LastSeen:  now,
	}
}

// Expired reports whether the session has passed its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticated is true when the session carries a user.
func (s Session) Authenticated(now time.Time) bool {
	return !s.User.Empty() && !s.Expired(now)
}

// Store is safe for concurrent use. Writes to the same id are last-write-wins.
type Store interface {
	// Get returns ErrSessionNotFound or ErrSessionExpired when no usable record exists.
	// It never modifies the store.
	Get(ctx context.Context, id string) (Session, error)
	Upsert(ctx context.Context, s Session) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	Close() error
}
