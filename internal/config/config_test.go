package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-entra-webapp/internal/config"
	"github.com/stretchr/testify/require"
)

var allVars = []string{
	"PORT", "APP_NAME", "ENV", "LOG_LEVEL",
	"AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET", "AZURE_TENANT_ID", "AZURE_AUTHORITY_HOST",
	"AZURE_INSTANCE_DISCOVERY", "REDIRECT_URI", "AZURE_SCOPES", "IDP_CLIENT", "IDP_EXCHANGE_TIMEOUT", "POST_LOGOUT_REDIRECT_URI",
	"SESSION_STORE", "SESSION_SQLITE_PATH", "SESSION_MAX_AGE", "SESSION_SWEEP_INTERVAL",
	"SESSION_COOKIE_SECURE", "SECRET_KEY",
	"AUTH_FLOW_TTL", "REQUIRE_STATE", "RATE_LIMIT_ENABLED", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"TRUST_FORWARDED_FOR", "CORS_ALLOWED_ORIGINS",
}

// clearEnv unsets every recognised variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	c, err := config.FromEnv()
	require.NoError(t, err)

	require.Equal(t, ":8000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.True(t, c.IsDev())
	require.Equal(t, "https://login.microsoftonline.com/", c.GetAuthority())
	require.Equal(t, "http://localhost:8000/getAToken", c.GetRedirectURI())
	require.Equal(t, []string{"User.Read"}, c.GetScopes())
	require.Equal(t, config.ClientKindOIDC, c.GetClientKind())
	require.True(t, c.GetInstanceDiscovery())
	require.Equal(t, 10*time.Second, c.GetExchangeTimeout())
	require.Equal(t, config.StoreMemory, c.GetSessionStore())
	require.Equal(t, time.Hour, c.GetMaxSessionAge())
	require.False(t, c.GetRequireState())
	require.True(t, c.GetEnableRateLimiting())
	require.False(t, c.GetTrustForwardedFor())
	require.Empty(t, c.GetAllowedOrigins())

	require.ElementsMatch(t,
		[]string{"AZURE_CLIENT_ID", "AZURE_CLIENT_SECRET", "AZURE_TENANT_ID"},
		c.MissingIdentitySettings())
	require.Len(t, c.Warnings(), 2)
}

func TestFromEnvFullyConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "5000")
	t.Setenv("ENV", "prod")
	t.Setenv("AZURE_CLIENT_ID", "client-1")
	t.Setenv("AZURE_CLIENT_SECRET", "secret-1")
	t.Setenv("AZURE_TENANT_ID", "contoso")
	t.Setenv("AZURE_AUTHORITY_HOST", "https://login.example.com/")
	t.Setenv("AZURE_SCOPES", "User.Read, Mail.Read")
	t.Setenv("IDP_CLIENT", "msal")
	t.Setenv("AZURE_INSTANCE_DISCOVERY", "false")
	t.Setenv("SESSION_STORE", "sqlite")
	t.Setenv("SESSION_MAX_AGE", "30m")
	t.Setenv("SECRET_KEY", "not-the-default")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	c, err := config.FromEnv()
	require.NoError(t, err)

	require.Equal(t, ":5000", c.GetPort())
	require.False(t, c.IsDev())
	require.Equal(t, "https://login.example.com/contoso", c.GetAuthority())
	require.Equal(t, []string{"User.Read", "Mail.Read"}, c.GetScopes())
	require.Equal(t, config.ClientKindMSAL, c.GetClientKind())
	require.False(t, c.GetInstanceDiscovery())
	require.Equal(t, config.StoreSQLite, c.GetSessionStore())
	require.Equal(t, 30*time.Minute, c.GetMaxSessionAge())
	require.Empty(t, c.MissingIdentitySettings())
	require.Empty(t, c.Warnings())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.Equal(t, "https://a.example.com, https://b.example.com", c.GetAllowedOrigins().String())
}

func TestFromEnvRejectsUnknownBackends(t *testing.T) {
	clearEnv(t)
	t.Setenv("IDP_CLIENT", "saml")
	_, err := config.FromEnv()
	require.ErrorContains(t, err, "IDP_CLIENT")

	t.Setenv("IDP_CLIENT", "oidc")
	t.Setenv("SESSION_STORE", "redis")
	_, err = config.FromEnv()
	require.ErrorContains(t, err, "SESSION_STORE")
}

func TestNewLoadsEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AZURE_CLIENT_ID=from-file\nPORT=9000\n"), 0o600))
	t.Setenv("PORT", "7000")

	c, err := config.New(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", c.GetClientID())
	require.Equal(t, ":7000", c.GetPort())
	require.NoError(t, os.Unsetenv("AZURE_CLIENT_ID"))

	_, err = config.New(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
