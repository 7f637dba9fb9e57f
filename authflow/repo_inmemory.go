package authflow

import (
	"fmt"
	"sync"
	"time"

	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	flows map[string]Flow
}

// NewInMemoryRepo creates a repo whose flows expire after ttl
func NewInMemoryRepo(ttl time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		ttl:   ttl,
		now:   time.Now,
		flows: make(map[string]Flow),
	}
}

// WithClock replaces the clock used for expiry checks
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.now = now
	return r
}

// Put stores a pending flow keyed by its state
func (r *InMemoryRepo) Put(flow Flow) error {
	if flow.State == "" {
		return fmt.Errorf("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.flows[flow.State] = flow
	return nil
}

// Take removes and returns the flow for state
func (r *InMemoryRepo) Take(state string) (Flow, error) {
	if state == "" {
		return Flow{}, errs.ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.flows[state]
	if !ok {
		return Flow{}, errs.ErrInvalidState
	}
	delete(r.flows, state)

	if flow.Expired(r.now(), r.ttl) {
		return Flow{}, errs.Wrapf(errs.ErrInvalidState, "flow started at %s has expired", flow.CreatedAt.Format(time.RFC3339))
	}
	return flow, nil
}

// DeleteExpired drops flows that were never completed
func (r *InMemoryRepo) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, flow := range r.flows {
		if flow.Expired(now, r.ttl) {
			delete(r.flows, state)
			removed++
		}
	}
	return removed
}

// Len is the number of pending flows
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}
