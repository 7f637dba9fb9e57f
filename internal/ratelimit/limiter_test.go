package ratelimit_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-entra-webapp/internal/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestAllowBurstThenReject(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.New(1, 3).WithClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("10.0.0.1"), "request %d", i)
	}
	require.False(t, l.Allow("10.0.0.1"))
	require.Greater(t, l.RetryAfter("10.0.0.1"), time.Duration(0))

	// Other clients have their own bucket.
	require.True(t, l.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	require.True(t, l.Allow("10.0.0.1"))
}

func TestPruneIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := ratelimit.New(5, 5).WithClock(func() time.Time { return now })

	l.Allow("a")
	now = now.Add(20 * time.Minute)
	l.Allow("b")

	require.Equal(t, 1, l.Prune())
	require.Equal(t, 1, l.Len())
	require.Zero(t, l.RetryAfter("a"))
}
