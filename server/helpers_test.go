package server_test

import (
	"context"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/jrsteele09/go-entra-webapp/authflow"
	"github.com/jrsteele09/go-entra-webapp/identity"
	"github.com/jrsteele09/go-entra-webapp/identity/fakeentra"
	"github.com/jrsteele09/go-entra-webapp/internal/config"
	"github.com/jrsteele09/go-entra-webapp/internal/metrics"
	"github.com/jrsteele09/go-entra-webapp/internal/ratelimit"
	"github.com/jrsteele09/go-entra-webapp/server"
	"github.com/jrsteele09/go-entra-webapp/session"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

var signInLink = regexp.MustCompile(`href="([^"]+)" class="btn" id="sign-in"`)

// setEnv pins every setting the server reads so the host environment cannot leak in.
func setEnv(t *testing.T, overrides map[string]string) config.Config {
	t.Helper()
	values := map[string]string{
		"PORT":                     "8000",
		"APP_NAME":                 "Test App",
		"ENV":                      "TEST",
		"LOG_LEVEL":                "error",
		"AZURE_CLIENT_ID":          "",
		"AZURE_CLIENT_SECRET":      "",
		"AZURE_TENANT_ID":          "",
		"AZURE_AUTHORITY_HOST":     "https://login.microsoftonline.com",
		"AZURE_INSTANCE_DISCOVERY": "true",
		"REDIRECT_URI":             "http://localhost:8000/getAToken",
		"AZURE_SCOPES":             "User.Read",
		"IDP_CLIENT":               "oidc",
		"IDP_EXCHANGE_TIMEOUT":     "5s",
		"POST_LOGOUT_REDIRECT_URI": "",
		"SESSION_STORE":            "memory",
		"SESSION_SQLITE_PATH":      "",
		"SESSION_MAX_AGE":          "1h",
		"SESSION_SWEEP_INTERVAL":   "5m",
		"SESSION_COOKIE_SECURE":    "false",
		"SECRET_KEY":               testSecret,
		"AUTH_FLOW_TTL":            "10m",
		"REQUIRE_STATE":            "false",
		"RATE_LIMIT_ENABLED":       "false",
		"RATE_LIMIT_RPS":           "5",
		"RATE_LIMIT_BURST":         "20",
		"TRUST_FORWARDED_FOR":      "false",
		"CORS_ALLOWED_ORIGINS":     "",
	}
	for k, v := range overrides {
		values[k] = v
	}
	for k, v := range values {
		t.Setenv(k, v)
	}

	c, err := config.FromEnv()
	require.NoError(t, err)
	return c
}

type harness struct {
	t       *testing.T
	idp     *fakeentra.Server
	srv     *server.Server
	ts      *httptest.Server
	client  *http.Client
	store   *session.InMemoryStore
	flows   *authflow.InMemoryRepo
	metrics *metrics.Metrics
}

// newSignInHarness runs the sign-in server over real HTTP against a fake
// Entra tenant, with a browser-like client that keeps cookies but does not
// follow redirects.
func newSignInHarness(t *testing.T, overrides map[string]string) *harness {
	t.Helper()

	idp, err := fakeentra.New()
	require.NoError(t, err)
	t.Cleanup(idp.Close)

	ts := httptest.NewUnstartedServer(nil)
	t.Cleanup(ts.Close)

	env := map[string]string{
		"AZURE_CLIENT_ID":      fakeentra.ClientID,
		"AZURE_CLIENT_SECRET":  fakeentra.ClientSecret,
		"AZURE_TENANT_ID":      fakeentra.TenantID,
		"AZURE_AUTHORITY_HOST": idp.URL(),
		"REDIRECT_URI":         "http://" + ts.Listener.Addr().String() + server.RouteCallback,
	}
	for k, v := range overrides {
		env[k] = v
	}
	c := setEnv(t, env)

	idpClient, err := identity.New(context.Background(), c, nil)
	require.NoError(t, err)

	h := &harness{
		t:       t,
		idp:     idp,
		ts:      ts,
		store:   session.NewInMemoryStore(),
		flows:   authflow.NewInMemoryRepo(c.GetAuthFlowTTL()),
		metrics: metrics.New("test"),
	}
	h.srv, err = server.New(server.ModeSignIn, c, server.Deps{
		Identity: idpClient,
		Sessions: h.store,
		Flows:    h.flows,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)

	ts.Config.Handler = h.srv
	ts.Start()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return h
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	return h.getURL(h.ts.URL + path)
}

func (h *harness) getURL(rawURL string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Get(rawURL)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

// signIn walks the whole browser flow: login page, provider, callback.
func (h *harness) signIn() {
	h.t.Helper()

	resp, body := h.get(server.RouteLogin)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	m := signInLink.FindStringSubmatch(body)
	require.Len(h.t, m, 2, "login page has no sign-in link")

	resp, _ = h.getURL(html.UnescapeString(m[1]))
	require.Equal(h.t, http.StatusFound, resp.StatusCode)
	callback := resp.Header.Get("Location")
	require.NotEmpty(h.t, callback)

	resp, _ = h.getURL(callback)
	require.Equal(h.t, http.StatusFound, resp.StatusCode)
	require.Equal(h.t, server.RouteDashboard, resp.Header.Get("Location"))
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func newLimiter(burst int) *ratelimit.Limiter {
	return ratelimit.New(0.001, burst)
}
