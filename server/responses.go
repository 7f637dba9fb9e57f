package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/rs/zerolog"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// ErrorPageData is the view model of error.html.
type ErrorPageData struct {
	AppName string
	Status  int
	Title   string
	Message string
	Detail  string
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// renderPage executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, statusCode int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		zerolog.Ctx(r.Context()).Err(err).Str("template", name).Msg("[server] failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_, _ = buf.WriteTo(w)
}

// renderError writes a uniform error body: JSON for /api/ routes, a page otherwise.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, statusCode int, kind error, message string) {
	s.renderErrorDetail(w, r, statusCode, kind, message, "")
}

func (s *Server) renderErrorDetail(w http.ResponseWriter, r *http.Request, statusCode int, kind error, message, detail string) {
	if isAPIRequest(r) {
		description := message
		if detail != "" {
			description = message + " " + detail
		}
		writeJSONError(w, errorCode(kind), description, statusCode)
		return
	}
	s.renderPage(w, r, statusCode, "error.html", ErrorPageData{
		AppName: s.config.GetAppName(),
		Status:  statusCode,
		Title:   http.StatusText(statusCode),
		Message: message,
		Detail:  detail,
	})
}

func errorCode(kind error) string {
	var authErr *identity.AuthError
	switch {
	case errs.As(kind, &authErr):
		return authErr.Code
	case errs.Is(kind, errs.ErrUnauthenticated):
		return "unauthenticated"
	case errs.Is(kind, errs.ErrRateLimited):
		return "rate_limited"
	case errs.Is(kind, errs.ErrNotFound):
		return "not_found"
	case errs.Is(kind, errs.ErrInvalidState):
		return "invalid_state"
	case errs.Is(kind, errs.ErrConfigurationMissing):
		return identity.CodeConfigurationMissing
	case errs.Is(kind, errs.ErrProviderExchange):
		return "provider_error"
	default:
		return "internal_error"
	}
}
