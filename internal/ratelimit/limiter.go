// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a set of per-key token buckets. Keys idle for longer than the
// idle timeout are dropped by Prune.
type Limiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
	visitors map[string]*visitor
}

func New(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// WithClock replaces the clock; used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow consumes a token for key and reports whether the request may proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RetryAfter is how long key has to wait for the next token.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		return 0
	}
	r := v.limiter.ReserveN(l.now(), 1)
	defer r.CancelAt(l.now())
	return r.DelayFrom(l.now())
}

// Prune forgets keys that have been idle for longer than the idle timeout.
func (l *Limiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Len is the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
