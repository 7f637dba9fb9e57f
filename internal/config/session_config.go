package config

import "time"

const (
	sessionStoreEnvVar  = "SESSION_STORE"
	sessionMaxAgeEnvVar = "SESSION_MAX_AGE"
	secretKeyEnvVar     = "SECRET_KEY"
	defaultSecretKey    = "dev-secret-key-change-in-production"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type SessionConfig interface {
	GetSessionStore() string
	GetSQLitePath() string
	GetMaxSessionAge() time.Duration
	GetSweepInterval() time.Duration
	GetCookieSecure() bool
	GetSecretKey() string
}

type Session struct {
	Store         string        `env:"SESSION_STORE" envDefault:"memory"`
	SQLitePath    string        `env:"SESSION_SQLITE_PATH" envDefault:"./data/sessions.db"`
	MaxAge        time.Duration `env:"SESSION_MAX_AGE" envDefault:"1h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	CookieSecure  bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	SecretKey     string        `env:"SECRET_KEY" envDefault:"dev-secret-key-change-in-production"`
}

var _ SessionConfig = Session{}

func (s Session) GetSessionStore() string         { return s.Store }
func (s Session) GetSQLitePath() string           { return s.SQLitePath }
func (s Session) GetMaxSessionAge() time.Duration { return s.MaxAge }
func (s Session) GetCookieSecure() bool           { return s.CookieSecure }
func (s Session) GetSecretKey() string            { return s.SecretKey }

func (s Session) GetSweepInterval() time.Duration {
	if s.SweepInterval <= 0 {
		return 5 * time.Minute
	}
	return s.SweepInterval
}
