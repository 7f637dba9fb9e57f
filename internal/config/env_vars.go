package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port     string `env:"PORT" envDefault:"8000"`
	AppName  string `env:"APP_NAME" envDefault:"Entra Web App"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":8000"
func (e EnvVars) GetPort() string {
	port := strings.TrimSpace(e.Port)
	if port == "" {
		port = "8000"
	}
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Env)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}
