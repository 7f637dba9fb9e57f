package server

import (
	"net/http"
	"time"

	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/jrsteele09/go-entra-webapp/session"
	"github.com/rs/zerolog"
)

const (
	// sessionCookieName carries the signed reference to the server-side session
	sessionCookieName = session.CookieName
	// authFlowCookieName ties a browser to the pending login it started
	authFlowCookieName = "auth_flow"
)

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetCookieSecure() || getScheme(r) == "https"
}

func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) error {
	value, err := s.cookies.Encode(sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge() / time.Second),
	})
	return nil
}

func (s *Server) ClearLoginSessionCookie(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, r, sessionCookieName)
}

func (s *Server) SetAuthFlowCookie(w http.ResponseWriter, r *http.Request, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authFlowCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode, // the provider redirect back is a top-level GET
		MaxAge:   int(s.config.GetAuthFlowTTL() / time.Second),
	})
}

func (s *Server) ClearAuthFlowCookie(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, r, authFlowCookieName)
}

func (s *Server) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// sessionIDFromCookie returns the session id if the cookie is present and its
// signature verifies.
func (s *Server) sessionIDFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return s.cookies.Decode(cookie.Value)
}

// currentSession looks up the caller's session without modifying the store.
// Anything short of an unexpired session with a user is anonymous.
func (s *Server) currentSession(r *http.Request) (session.Session, bool) {
	id, ok := s.sessionIDFromCookie(r)
	if !ok {
		return session.Session{}, false
	}

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if !errs.Is(err, errs.ErrSessionNotFound) && !errs.Is(err, errs.ErrSessionExpired) {
			zerolog.Ctx(r.Context()).Err(err).Msg("[server] session lookup failed")
		}
		return session.Session{}, false
	}
	if !sess.Authenticated(s.now()) {
		return session.Session{}, false
	}
	return sess, true
}
