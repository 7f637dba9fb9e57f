// Package principal reads the identity that App Service authentication
// ("Easy Auth") forwards to the application as request headers.
//
// The headers are trusted as-is. Only deploy the proxy mode behind a front end
// that strips client-supplied X-MS-CLIENT-PRINCIPAL* headers; nothing here can
// tell a forged header from a real one.
package principal

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

const (
	HeaderName      = "X-MS-CLIENT-PRINCIPAL-NAME"
	HeaderID        = "X-MS-CLIENT-PRINCIPAL-ID"
	HeaderIDP       = "X-MS-CLIENT-PRINCIPAL-IDP"
	HeaderPrincipal = "X-MS-CLIENT-PRINCIPAL"

	emailClaimType = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	defaultRoleTyp = "roles"
)

// Principal is the identity asserted by the upstream proxy.
type Principal struct {
	Name             string   `json:"name"`
	ID               string   `json:"id,omitempty"`
	IdentityProvider string   `json:"identity_provider,omitempty"`
	Email            string   `json:"email,omitempty"`
	Roles            []string `json:"roles,omitempty"`
}

type claim struct {
	Typ string `json:"typ"`
	Val string `json:"val"`
}

// clientPrincipal is the decoded X-MS-CLIENT-PRINCIPAL document.
type clientPrincipal struct {
	AuthTyp string  `json:"auth_typ"`
	NameTyp string  `json:"name_typ"`
	RoleTyp string  `json:"role_typ"`
	Claims  []claim `json:"claims"`
}

// FromHeaders returns the principal, or false when the name header is absent.
// Missing optional headers or an undecodable principal document are not errors.
func FromHeaders(h http.Header) (Principal, bool) {
	name := strings.TrimSpace(h.Get(HeaderName))
	if name == "" {
		return Principal{}, false
	}

	p := Principal{
		Name:             name,
		ID:               strings.TrimSpace(h.Get(HeaderID)),
		IdentityProvider: strings.TrimSpace(h.Get(HeaderIDP)),
	}

	doc, ok := decode(h.Get(HeaderPrincipal))
	if !ok {
		return p, true
	}
	if p.IdentityProvider == "" {
		p.IdentityProvider = doc.AuthTyp
	}

	roleTyp := doc.RoleTyp
	if roleTyp == "" {
		roleTyp = defaultRoleTyp
	}
	for _, c := range doc.Claims {
		switch {
		case c.Typ == roleTyp || c.Typ == defaultRoleTyp:
			if c.Val != "" && !contains(p.Roles, c.Val) {
				p.Roles = append(p.Roles, c.Val)
			}
		case c.Typ == emailClaimType || c.Typ == "email":
			if p.Email == "" {
				p.Email = c.Val
			}
		case c.Typ == "preferred_username" && strings.Contains(c.Val, "@"):
			if p.Email == "" {
				p.Email = c.Val
			}
		}
	}
	return p, true
}

func decode(raw string) (clientPrincipal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return clientPrincipal{}, false
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(raw); err != nil {
			return clientPrincipal{}, false
		}
	}
	var doc clientPrincipal
	if err := json.Unmarshal(data, &doc); err != nil {
		return clientPrincipal{}, false
	}
	return doc, true
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
