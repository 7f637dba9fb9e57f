// Package metrics exposes request and sign-in metrics for Prometheus.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded by RecordLogin.
const (
	OutcomeSuccess        = "success"
	OutcomeMissingCode    = "missing_code"
	OutcomeInvalidState   = "invalid_state"
	OutcomeProviderError  = "provider_error"
	OutcomeProviderDenied = "provider_denied"
)

type Metrics struct {
	registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	logouts         prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// New creates a private registry with Go runtime and process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Counter for HTTP requests by method, status, route",
			},
			[]string{"method", "status", "route"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests by method, status, route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status", "route"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Authorization code callbacks by outcome",
			},
			[]string{"outcome"},
		),
		logouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Logout requests",
		}),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter by route",
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordLogin(outcome string) { m.logins.WithLabelValues(outcome).Inc() }

func (m *Metrics) RecordLogout() { m.logouts.Inc() }

func (m *Metrics) RecordRateLimited(route string) { m.rateLimited.WithLabelValues(route).Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code sent to the client.
func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Middleware counts and times requests by their registered route pattern.
func (m *Metrics) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next(sr, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sr.statusCode)
		m.requestCounter.WithLabelValues(r.Method, status, route).Inc()
		m.requestDuration.WithLabelValues(r.Method, status, route).Observe(time.Since(start).Seconds())
	}
}
