package server

import (
	"net/http"

	"github.com/jrsteele09/go-entra-webapp/principal"
)

// ProxyPageData contains data for rendering the proxy-mode home page
type ProxyPageData struct {
	AppName   string
	Title     string
	Principal principal.Principal
}

// ProxyIndexHandler renders the principal asserted by the front end. Wrap with RequirePrincipal.
func (s *Server) ProxyIndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		s.renderPage(w, r, http.StatusOK, "proxy_home.html", ProxyPageData{
			AppName:   s.config.GetAppName(),
			Title:     "Home",
			Principal: p,
		})
	}
}

// ProxyAPIMeHandler returns the principal as JSON. Wrap with RequirePrincipal.
func (s *Server) ProxyAPIMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"principal":     p,
		})
	}
}
