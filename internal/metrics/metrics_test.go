package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-entra-webapp/internal/metrics"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	m := metrics.New("webapp")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /items/{id}", m.Middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var series int
	for _, f := range families {
		if f.GetName() == "webapp_http_requests_total" {
			series = len(f.GetMetric())
		}
	}
	require.Equal(t, 1, series)

	m.RecordLogin(metrics.OutcomeSuccess)
	m.RecordLogin(metrics.OutcomeProviderError)
	m.RecordLogout()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `webapp_http_requests_total{method="GET",route="GET /items/{id}",status="418"} 2`)
	require.Contains(t, string(body), `webapp_logins_total{outcome="provider_error"} 1`)
	require.Contains(t, string(body), "webapp_logouts_total 1")
}
