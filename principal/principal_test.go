package principal_test

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-entra-webapp/principal"
	"github.com/stretchr/testify/require"
)

func TestFromHeadersNameOnly(t *testing.T) {
	h := http.Header{}
	h.Set("X-MS-CLIENT-PRINCIPAL-NAME", "Alice")

	p, ok := principal.FromHeaders(h)
	require.True(t, ok)
	require.Equal(t, principal.Principal{Name: "Alice"}, p)
}

func TestFromHeadersAbsent(t *testing.T) {
	h := http.Header{}
	h.Set("X-MS-CLIENT-PRINCIPAL-ID", "id-only")
	h.Set("X-MS-CLIENT-PRINCIPAL", "not base64 at all")

	_, ok := principal.FromHeaders(h)
	require.False(t, ok)

	_, ok = principal.FromHeaders(http.Header{})
	require.False(t, ok)
}

func TestFromHeadersWithPrincipalDocument(t *testing.T) {
	doc := `{
		"auth_typ": "aad",
		"name_typ": "name",
		"role_typ": "http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
		"claims": [
			{"typ": "preferred_username", "val": "alice@contoso.com"},
			{"typ": "http://schemas.microsoft.com/ws/2008/06/identity/claims/role", "val": "Admin"},
			{"typ": "roles", "val": "Reader"},
			{"typ": "roles", "val": "Admin"}
		]
	}`

	h := http.Header{}
	h.Set("X-MS-CLIENT-PRINCIPAL-NAME", "Alice")
	h.Set("X-MS-CLIENT-PRINCIPAL-ID", "oid-1")
	h.Set("X-MS-CLIENT-PRINCIPAL", base64.StdEncoding.EncodeToString([]byte(doc)))

	p, ok := principal.FromHeaders(h)
	require.True(t, ok)
	require.Equal(t, principal.Principal{
		Name:             "Alice",
		ID:               "oid-1",
		IdentityProvider: "aad",
		Email:            "alice@contoso.com",
		Roles:            []string{"Admin", "Reader"},
	}, p)
}

func TestFromHeadersIgnoresBadDocument(t *testing.T) {
	h := http.Header{}
	h.Set("X-MS-CLIENT-PRINCIPAL-NAME", "Alice")
	h.Set("X-MS-CLIENT-PRINCIPAL-IDP", "aad")
	h.Set("X-MS-CLIENT-PRINCIPAL", base64.StdEncoding.EncodeToString([]byte("{broken")))

	p, ok := principal.FromHeaders(h)
	require.True(t, ok)
	require.Equal(t, "aad", p.IdentityProvider)
	require.Empty(t, p.Roles)
}
