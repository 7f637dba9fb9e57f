package config

import "time"

type SecurityConfig interface {
	GetAuthFlowTTL() time.Duration
	GetRequireState() bool
	GetEnableRateLimiting() bool
	GetRateLimit() (rps float64, burst int)
	GetTrustForwardedFor() bool
}

type Security struct {
	AuthFlowTTL      time.Duration `env:"AUTH_FLOW_TTL" envDefault:"10m"`
	RequireState     bool          `env:"REQUIRE_STATE" envDefault:"false"`
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     float64       `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst   int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	TrustForwarded   bool          `env:"TRUST_FORWARDED_FOR" envDefault:"false"`
}

var _ SecurityConfig = Security{}

func (s Security) GetAuthFlowTTL() time.Duration {
	return s.AuthFlowTTL
}

// GetRequireState rejects callbacks that carry no known state. Off by default
// so that a bare ?code= callback still reaches the provider.
func (s Security) GetRequireState() bool {
	return s.RequireState
}

func (s Security) GetEnableRateLimiting() bool {
	return s.RateLimitEnabled
}

func (s Security) GetRateLimit() (float64, int) {
	return s.RateLimitRPS, s.RateLimitBurst
}

// GetTrustForwardedFor keys rate limiting on X-Forwarded-For. Only enable it
// behind a proxy that sets the header.
func (s Security) GetTrustForwardedFor() bool {
	return s.TrustForwarded
}
