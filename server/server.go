package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-entra-webapp/authflow"
	"github.com/jrsteele09/go-entra-webapp/identity"
	"github.com/jrsteele09/go-entra-webapp/internal/config"
	"github.com/jrsteele09/go-entra-webapp/internal/metrics"
	"github.com/jrsteele09/go-entra-webapp/internal/ratelimit"
	"github.com/jrsteele09/go-entra-webapp/session"
)

// Mode selects how the server learns who the user is.
type Mode string

const (
	// ModeSignIn runs the authorization-code flow itself and keeps server-side sessions.
	ModeSignIn Mode = "serve"
	// ModeProxy trusts identity headers set by App Service authentication.
	ModeProxy Mode = "proxy"
)

// Deps are the collaborators the handlers call into. Sessions, Flows and
// Identity are only used in ModeSignIn.
type Deps struct {
	Identity identity.Client
	Sessions session.Store
	Flows    authflow.Repo
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.Limiter
	Now      func() time.Time
}

type Server struct {
	env       string
	mode      Mode
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	idp       identity.Client
	sessions  session.Store
	flows     authflow.Repo
	cookies   *session.CookieCodec
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
	templates *template.Template
	now       func() time.Time
}

func New(mode Mode, cfg config.Config, deps Deps) (*Server, error) {
	templates, err := ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mode:      mode,
		mux:       http.NewServeMux(),
		config:    cfg,
		idp:       deps.Identity,
		sessions:  deps.Sessions,
		flows:     deps.Flows,
		metrics:   deps.Metrics,
		limiter:   deps.Limiter,
		templates: templates,
		now:       deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.New("entra_webapp")
	}
	if s.limiter == nil && cfg.GetEnableRateLimiting() {
		rps, burst := cfg.GetRateLimit()
		s.limiter = ratelimit.New(rps, burst)
	}

	switch mode {
	case ModeSignIn:
		if s.idp == nil || s.sessions == nil || s.flows == nil {
			return nil, fmt.Errorf("[Server New] identity client, session store and flow repo are required")
		}
		s.cookies, err = session.NewCookieCodec(cfg.GetSecretKey(), int(cfg.GetMaxSessionAge()/time.Second))
		if err != nil {
			return nil, fmt.Errorf("[Server New] %w", err)
		}
		s.initRoutes()
	case ModeProxy:
		s.initProxyRoutes()
	default:
		return nil, fmt.Errorf("[Server New] unknown mode %q", mode)
	}
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(scheme, ",")[0]))
	}
	return "http"
}

// hostURL is the externally visible root URL of the request, e.g. https://app.example.com/
func hostURL(r *http.Request) string {
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return getScheme(r) + "://" + host + "/"
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
