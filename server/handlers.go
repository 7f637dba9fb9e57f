package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/jrsteele09/go-entra-webapp/internal/utils"
	"github.com/rs/zerolog"
)

// DashboardPageData contains data for rendering the dashboard
type DashboardPageData struct {
	AppName   string
	Title     string
	User      identity.Identity
	LogoutURL string
	ExpiresAt time.Time
}

// MeResponse is the body of GET /api/me
type MeResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          identity.Identity `json:"user"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
}

// IndexHandler sends the browser to the dashboard or the login page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentSession(r); ok {
			http.Redirect(w, r, RouteDashboard, http.StatusFound)
			return
		}
		http.Redirect(w, r, RouteLogin, http.StatusFound)
	}
}

// DashboardHandler renders the signed-in user. Wrap with RequireSession.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, RouteLogin, http.StatusFound)
			return
		}
		s.renderPage(w, r, http.StatusOK, "dashboard.html", DashboardPageData{
			AppName:   s.config.GetAppName(),
			Title:     "Dashboard",
			User:      sess.User.Identity(),
			LogoutURL: RouteLogout,
			ExpiresAt: sess.ExpiresAt,
		})
	}
}

// APIMeHandler returns the signed-in user as JSON. Wrap with RequireSessionAPI.
func (s *Server) APIMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			writeJSONError(w, "unauthenticated", "authentication required", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, MeResponse{
			Authenticated: true,
			User:          sess.User.Identity(),
			ExpiresAt:     utils.Ptr(sess.ExpiresAt),
		})
	}
}

// LogoutHandler ends the local session and hands the browser to the provider's
// end-session endpoint. Calling it without a session is not an error.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, ok := s.sessionIDFromCookie(r); ok {
			if err := s.sessions.Delete(r.Context(), id); err != nil {
				zerolog.Ctx(r.Context()).Err(err).Msg("[logout] failed to delete session")
			}
		}
		s.ClearLoginSessionCookie(w, r)
		s.metrics.RecordLogout()

		postLogout := s.config.GetPostLogoutRedirectURI()
		if postLogout == "" {
			postLogout = hostURL(r)
		}
		http.Redirect(w, r, s.idp.EndSessionURL(postLogout), http.StatusFound)
	}
}

// HealthHandler reports liveness; it never touches the identity provider.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"mode":      string(s.mode),
			"timestamp": s.now().UTC().Format(time.RFC3339),
		})
	}
}

// NotFoundHandler answers every unregistered path
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, errs.ErrNotFound, "The page you asked for does not exist.")
	}
}
