package server

import (
	"context"
	"net/http"

	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/jrsteele09/go-entra-webapp/principal"
	"github.com/jrsteele09/go-entra-webapp/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the authenticated session
	ContextKeySession ContextKey = "session"
	// ContextKeyPrincipal stores the proxy-asserted principal
	ContextKeyPrincipal ContextKey = "principal"
)

// SessionFromContext returns the session placed by RequireSession or RequireSessionAPI.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(ContextKeySession).(session.Session)
	return sess, ok
}

// PrincipalFromContext returns the principal placed by RequirePrincipal.
func PrincipalFromContext(ctx context.Context) (principal.Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(principal.Principal)
	return p, ok
}

// RequireSession is middleware for HTML routes; anonymous callers are sent to the login page.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := s.currentSession(r)
			if !ok {
				http.Redirect(w, r, RouteLogin, http.StatusFound)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}

// RequireSessionAPI is middleware for JSON routes; anonymous callers get a 401 body.
func (s *Server) RequireSessionAPI() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := s.currentSession(r)
			if !ok {
				writeJSONError(w, "unauthenticated", "authentication required", http.StatusUnauthorized)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}

// RequirePrincipal trusts the App Service identity headers. Anonymous callers
// get a 401 page, or a 401 body on /api/ routes.
func (s *Server) RequirePrincipal() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromHeaders(r.Header)
			if !ok {
				s.renderError(w, r, http.StatusUnauthorized, errs.ErrUnauthenticated, "You are not signed in. This application must be reached through App Service authentication.")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyPrincipal, p)))
		}
	}
}
