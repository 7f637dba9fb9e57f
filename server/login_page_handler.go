package server

import (
	"net/http"

	"github.com/jrsteele09/go-entra-webapp/authflow"
	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/rs/zerolog"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName   string
	Title     string
	AuthURL   string
	Error     string
	ErrorCode string
}

// LoginPageHandler displays the login page (GET /login). A new pending flow is
// started on every render so each sign-in link carries its own state, nonce
// and PKCE challenge.
func (s *Server) LoginPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.currentSession(r); ok {
			http.Redirect(w, r, RouteDashboard, http.StatusFound)
			return
		}

		flow := authflow.New(RouteDashboard, s.now())
		authURL, err := s.idp.AuthorizationURL(r.Context(), identity.AuthorizationRequest{
			Scopes:       s.config.GetScopes(),
			RedirectURI:  s.config.GetRedirectURI(),
			State:        flow.State,
			Nonce:        flow.Nonce,
			CodeVerifier: flow.CodeVerifier,
		})
		if err != nil {
			s.renderAuthError(w, r, err)
			return
		}

		if err := s.flows.Put(flow); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("[login] failed to store pending flow")
			s.renderError(w, r, http.StatusInternalServerError, errs.ErrInternal, "Could not start sign-in. Please try again.")
			return
		}
		s.SetAuthFlowCookie(w, r, flow.State)

		// Set by the callback when the provider refused the sign-in.
		q := r.URL.Query()
		s.renderPage(w, r, http.StatusOK, "login.html", LoginPageData{
			AppName:   s.config.GetAppName(),
			Title:     "Sign in",
			AuthURL:   authURL,
			Error:     q.Get("error_description"),
			ErrorCode: q.Get("error"),
		})
	}
}

// renderAuthError shows an identity provider failure to the user. The
// provider's description is part of the message; nothing is retried.
func (s *Server) renderAuthError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	var authErr *identity.AuthError
	if !errs.As(err, &authErr) {
		logger.Err(err).Msg("[login] unexpected identity provider failure")
		s.renderError(w, r, http.StatusInternalServerError, errs.ErrInternal, "Authentication failed unexpectedly.")
		return
	}

	status := http.StatusBadRequest
	message := "Authentication error: " + authErr.Description
	switch {
	case authErr.Code == identity.CodeConfigurationMissing:
		status = http.StatusServiceUnavailable
		message = "Sign-in is not configured: " + authErr.Description
		logger.Warn().Str("code", authErr.Code).Msg("[login] " + authErr.Description)
	case authErr.Code == identity.CodeTimeout:
		status = http.StatusGatewayTimeout
		logger.Warn().Str("code", authErr.Code).Msg("[login] identity provider timed out")
	case authErr.Code == identity.CodeUnreachable:
		status = http.StatusBadGateway
		logger.Warn().Err(authErr.Err).Str("code", authErr.Code).Msg("[login] identity provider unreachable")
	default:
		logger.Warn().Str("code", authErr.Code).Str("description", authErr.Description).Msg("[login] code exchange rejected")
	}
	if authErr.Description == "" {
		message = "Authentication error: " + authErr.Code
	}
	s.renderErrorDetail(w, r, status, err, message, "Error code: "+authErr.Code)
}
