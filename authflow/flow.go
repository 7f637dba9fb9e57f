// Package authflow keeps the per-login values (state, nonce and PKCE verifier)
// between rendering the login page and handling the provider callback.
package authflow

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"golang.org/x/oauth2"
)

type Flow struct {
	State        string
	Nonce        string
	CodeVerifier string
	ReturnURL    string
	CreatedAt    time.Time
}

// Expired reports whether the flow is older than ttl at now.
func (f Flow) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(f.CreatedAt) > ttl
}

// New creates a flow with fresh random values.
func New(returnURL string, now time.Time) Flow {
	return Flow{
		State:        randomString(32),
		Nonce:        randomString(32),
		CodeVerifier: oauth2.GenerateVerifier(),
		ReturnURL:    returnURL,
		CreatedAt:    now,
	}
}

type Repo interface {
	Put(flow Flow) error
	// Take returns the flow for state and removes it. A flow can be taken once.
	Take(state string) (Flow, error)
	DeleteExpired(now time.Time) int
}

func randomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
