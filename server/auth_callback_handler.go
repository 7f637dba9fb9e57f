package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-entra-webapp/authflow"
	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/jrsteele09/go-entra-webapp/internal/metrics"
	"github.com/jrsteele09/go-entra-webapp/session"
	"github.com/rs/zerolog"
)

// OAuthCallbackHandler completes the authorization-code flow (GET /getAToken).
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())
		q := r.URL.Query()

		code := q.Get("code")
		if code == "" {
			// No code never reaches the provider. A refusal reported through
			// error parameters is passed on to the login page.
			target := RouteLogin
			if errorParam := q.Get("error"); errorParam != "" {
				s.discardFlow(w, r, q.Get("state"))
				s.metrics.RecordLogin(metrics.OutcomeProviderDenied)
				logger.Warn().Str("code", errorParam).Str("description", q.Get("error_description")).Msg("[callback] provider refused sign-in")
				target += "?" + url.Values{
					"error":             {errorParam},
					"error_description": {q.Get("error_description")},
				}.Encode()
			} else {
				s.metrics.RecordLogin(metrics.OutcomeMissingCode)
				logger.Debug().Err(errs.ErrMissingAuthorizationCode).Msg("[callback] redirecting to login")
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		flow, err := s.claimFlow(r, q.Get("state"))
		s.ClearAuthFlowCookie(w, r)
		if err != nil {
			logger.Warn().Err(err).Msg("[callback] rejected state")
			s.metrics.RecordLogin(metrics.OutcomeInvalidState)
			s.renderError(w, r, http.StatusBadRequest, errs.ErrInvalidState, "This sign-in link is no longer valid. Please sign in again.")
			return
		}

		claims, err := s.idp.ExchangeCode(r.Context(), code, identity.ExchangeRequest{
			Scopes:       s.config.GetScopes(),
			RedirectURI:  s.config.GetRedirectURI(),
			Nonce:        flow.Nonce,
			CodeVerifier: flow.CodeVerifier,
		})
		if err == nil && claims.Empty() {
			err = &identity.AuthError{Code: identity.CodeMissingIDToken, Description: "the identity provider returned no identity claims"}
		}
		if err != nil {
			s.metrics.RecordLogin(metrics.OutcomeProviderError)
			s.renderAuthError(w, r, err)
			return
		}

		// Always issue a fresh session id on sign-in.
		if oldID, ok := s.sessionIDFromCookie(r); ok {
			if err := s.sessions.Delete(r.Context(), oldID); err != nil {
				logger.Err(err).Msg("[callback] failed to delete previous session")
			}
		}

		sess := session.New(claims, s.now(), s.config.GetMaxSessionAge())
		if err := s.sessions.Upsert(r.Context(), sess); err != nil {
			logger.Err(err).Msg("[callback] failed to store session")
			s.renderError(w, r, http.StatusInternalServerError, errs.ErrInternal, "Could not complete sign-in. Please try again.")
			return
		}
		if err := s.SetLoginSessionCookie(w, r, sess.ID); err != nil {
			logger.Err(err).Msg("[callback] failed to encode session cookie")
			_ = s.sessions.Delete(r.Context(), sess.ID)
			s.renderError(w, r, http.StatusInternalServerError, errs.ErrInternal, "Could not complete sign-in. Please try again.")
			return
		}
		s.metrics.RecordLogin(metrics.OutcomeSuccess)

		id := claims.Identity()
		logger.Info().Str("subject", id.Subject).Str("user", id.PreferredUsername).Msg("[callback] signed in")

		target := flow.ReturnURL
		if target == "" {
			target = RouteDashboard
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// claimFlow consumes the pending flow that matches state. A callback that has
// neither a state nor a flow cookie is allowed through unless states are required.
func (s *Server) claimFlow(r *http.Request, state string) (authflow.Flow, error) {
	var cookieState string
	if cookie, err := r.Cookie(authFlowCookieName); err == nil {
		cookieState = cookie.Value
	}

	if state == "" && cookieState == "" {
		if s.config.GetRequireState() {
			return authflow.Flow{}, errs.Wrapf(errs.ErrInvalidState, "callback carries no state")
		}
		return authflow.Flow{ReturnURL: RouteDashboard}, nil
	}
	if cookieState != "" && cookieState != state {
		return authflow.Flow{}, errs.Wrapf(errs.ErrInvalidState, "state does not match this browser")
	}
	return s.flows.Take(state)
}

func (s *Server) discardFlow(w http.ResponseWriter, r *http.Request, state string) {
	if state != "" {
		_, _ = s.flows.Take(state)
	}
	s.ClearAuthFlowCookie(w, r)
}
