package identity

import (
	"net/url"
	"path"
	"strings"
)

// Endpoints are the Microsoft identity platform v2.0 endpoints of one authority.
type Endpoints struct {
	Authority string
	AuthURL   string
	TokenURL  string
	LogoutURL string
	KeysURL   string
	Issuer    string
}

// EntraEndpoints derives the v2.0 endpoints from an authority such as
// https://login.microsoftonline.com/{tenant}. No discovery request is made.
func EntraEndpoints(authority string) Endpoints {
	authority = strings.TrimRight(authority, "/")
	return Endpoints{
		Authority: authority,
		AuthURL:   authority + "/oauth2/v2.0/authorize",
		TokenURL:  authority + "/oauth2/v2.0/token",
		LogoutURL: authority + "/oauth2/v2.0/logout",
		KeysURL:   authority + "/discovery/v2.0/keys",
		Issuer:    authority + "/v2.0",
	}
}

// EndSessionURL builds the logout redirect with an optional post-logout target.
func (e Endpoints) EndSessionURL(postLogoutRedirectURI string) string {
	if postLogoutRedirectURI == "" {
		return e.LogoutURL
	}
	return e.LogoutURL + "?" + url.Values{"post_logout_redirect_uri": {postLogoutRedirectURI}}.Encode()
}

// multiTenant reports whether tokens are issued by per-tenant issuers, in which
// case the issuer cannot be checked against the authority.
func (e Endpoints) multiTenant() bool {
	u, err := url.Parse(e.Authority)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Base(u.Path)) {
	case "common", "organizations", "consumers":
		return true
	}
	return false
}

// reservedScopes are added by the provider libraries themselves.
var reservedScopes = map[string]struct{}{
	"openid":         {},
	"profile":        {},
	"offline_access": {},
}

// withOpenIDScopes prepends the OpenID Connect scopes and removes duplicates.
func withOpenIDScopes(scopes []string) []string {
	out := []string{"openid", "profile", "email"}
	seen := map[string]struct{}{"openid": {}, "profile": {}, "email": {}}
	for _, s := range scopes {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// withoutReservedScopes drops scopes that MSAL adds on its own.
func withoutReservedScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if _, ok := reservedScopes[strings.ToLower(s)]; ok || s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
