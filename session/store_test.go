package session_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/jrsteele09/go-entra-webapp/session"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type storeFactory func(t *testing.T, c *clock) session.Store

func stores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, c *clock) session.Store {
			return session.NewInMemoryStore().WithClock(c.Now)
		},
		"sqlite": func(t *testing.T, c *clock) session.Store {
			s, err := session.OpenSQLite(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s.WithClock(c.Now)
		},
		"sqlite-file": func(t *testing.T, c *clock) session.Store {
			s, err := session.OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s.WithClock(c.Now)
		},
	}
}

func alice() identity.Claims {
	return identity.Claims{
		"name":               "Alice Example",
		"preferred_username": "alice@example.com",
		"sub":                "subject-alice",
		"roles":              []any{"Reader"},
	}
}

func TestStores(t *testing.T) {
	for name, factory := range stores() {
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) {
				c := &clock{now: t0}
				store := factory(t, c)
				ctx := context.Background()

				s := session.New(alice(), t0, time.Hour)
				require.NoError(t, store.Upsert(ctx, s))

				got, err := store.Get(ctx, s.ID)
				require.NoError(t, err)
				require.Equal(t, s.ID, got.ID)
				require.Equal(t, "Alice Example", got.User.Identity().Name)
				require.Equal(t, []string{"Reader"}, got.User.Identity().Roles)
				require.True(t, got.ExpiresAt.Equal(t0.Add(time.Hour)))
				require.True(t, got.Authenticated(t0))
			})

			t.Run("unknown and empty ids", func(t *testing.T) {
				store := factory(t, &clock{now: t0})
				_, err := store.Get(context.Background(), "missing")
				require.ErrorIs(t, err, errs.ErrSessionNotFound)
				_, err = store.Get(context.Background(), "")
				require.ErrorIs(t, err, errs.ErrSessionNotFound)
				require.Error(t, store.Upsert(context.Background(), session.Session{}))
			})

			t.Run("delete is idempotent", func(t *testing.T) {
				store := factory(t, &clock{now: t0})
				ctx := context.Background()
				s := session.New(alice(), t0, time.Hour)
				require.NoError(t, store.Upsert(ctx, s))

				require.NoError(t, store.Delete(ctx, s.ID))
				require.NoError(t, store.Delete(ctx, s.ID))
				require.NoError(t, store.Delete(ctx, ""))

				_, err := store.Get(ctx, s.ID)
				require.ErrorIs(t, err, errs.ErrSessionNotFound)
			})

			t.Run("expiry is reported without eviction", func(t *testing.T) {
				c := &clock{now: t0}
				store := factory(t, c)
				ctx := context.Background()

				short := session.New(alice(), t0, time.Minute)
				long := session.New(alice(), t0, time.Hour)
				require.NoError(t, store.Upsert(ctx, short))
				require.NoError(t, store.Upsert(ctx, long))

				c.Set(t0.Add(2 * time.Minute))
				_, err := store.Get(ctx, short.ID)
				require.ErrorIs(t, err, errs.ErrSessionExpired)

				// Get does not remove the record; the sweep does.
				n, err := store.DeleteExpired(ctx, c.Now())
				require.NoError(t, err)
				require.Equal(t, 1, n)

				_, err = store.Get(ctx, short.ID)
				require.ErrorIs(t, err, errs.ErrSessionNotFound)
				_, err = store.Get(ctx, long.ID)
				require.NoError(t, err)
			})

			t.Run("last write wins", func(t *testing.T) {
				store := factory(t, &clock{now: t0})
				ctx := context.Background()
				s := session.New(alice(), t0, time.Hour)
				require.NoError(t, store.Upsert(ctx, s))

				s.User = identity.Claims{"name": "Alice Renamed"}
				require.NoError(t, store.Upsert(ctx, s))

				got, err := store.Get(ctx, s.ID)
				require.NoError(t, err)
				require.Equal(t, "Alice Renamed", got.User.Identity().Name)
			})

			t.Run("concurrent sessions do not interfere", func(t *testing.T) {
				store := factory(t, &clock{now: t0})
				ctx := context.Background()

				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						name := fmt.Sprintf("user-%d", i)
						s := session.New(identity.Claims{"name": name}, t0, time.Hour)
						if err := store.Upsert(ctx, s); err != nil {
							t.Error(err)
							return
						}
						got, err := store.Get(ctx, s.ID)
						if err != nil {
							t.Error(err)
							return
						}
						if got.User.Identity().Name != name {
							t.Errorf("session %s returned %q", s.ID, got.User.Identity().Name)
						}
					}(i)
				}
				wg.Wait()
			})
		})
	}
}

func TestInMemoryStoreCopiesClaims(t *testing.T) {
	store := session.NewInMemoryStore()
	ctx := context.Background()

	s := session.New(alice(), time.Now(), time.Hour)
	require.NoError(t, store.Upsert(ctx, s))
	s.User["name"] = "Mallory"

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice Example", got.User.Identity().Name)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")
	ctx := context.Background()

	store, err := session.OpenSQLite(path)
	require.NoError(t, err)
	s := session.New(alice(), time.Now(), time.Hour)
	require.NoError(t, store.Upsert(ctx, s))
	require.NoError(t, store.Close())

	reopened, err := session.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.User.Identity().PreferredUsername)
}

func TestSQLiteFileStoreUsesOneConnection(t *testing.T) {
	store, err := session.OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.Equal(t, 1, session.MaxOpenConns(store))

	ctx := context.Background()
	var wg sync.WaitGroup
	errCh := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := session.New(alice(), time.Now(), time.Hour)
			if err := store.Upsert(ctx, s); err != nil {
				errCh <- err
				return
			}
			if err := store.Delete(ctx, s.ID); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := session.OpenSQLite("  ")
	require.ErrorContains(t, err, "storage path is required")
}

func TestSweepStopsOnCancel(t *testing.T) {
	store := session.NewInMemoryStore()
	require.NoError(t, store.Upsert(context.Background(), session.New(alice(), time.Now().Add(-2*time.Hour), time.Hour)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Sweep(ctx, store, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
