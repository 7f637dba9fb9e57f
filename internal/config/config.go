package config

import (
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
	SessionConfig
	SecurityConfig

	// Warnings lists settings that are missing or unsafe. The process still
	// starts; login fails deterministically while identity settings are absent.
	Warnings() []string
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
	Session
	Security
}

var _ Config = mainConfig{}

// New loads env files into the process environment and then reads it.
// Without arguments an optional .env in the working directory is loaded;
// files named explicitly must exist. Variables already set are not overridden.
func New(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "load .env")
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrapf(err, "load %v", envFiles)
	}
	return FromEnv()
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) validate() error {
	switch c.ClientKind {
	case ClientKindOIDC, ClientKindMSAL:
	default:
		return fmt.Errorf("%s: unsupported identity client %q", idpClientEnvVar, c.ClientKind)
	}
	switch c.Store {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%s: unsupported session store %q", sessionStoreEnvVar, c.Store)
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("%s must be positive", sessionMaxAgeEnvVar)
	}
	return nil
}

func (c mainConfig) Warnings() []string {
	var warnings []string
	if missing := c.MissingIdentitySettings(); len(missing) > 0 {
		warnings = append(warnings, fmt.Sprintf("identity provider settings missing: %v", missing))
	}
	if c.SecretKey == defaultSecretKey {
		warnings = append(warnings, secretKeyEnvVar+" is not set, using the development default")
	}
	return warnings
}
