package identity_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-entra-webapp/identity"
	"github.com/stretchr/testify/require"
)

func TestClaimsIdentity(t *testing.T) {
	var claims identity.Claims
	require.NoError(t, json.Unmarshal([]byte(`{
		"name": "Alice Example",
		"preferred_username": "alice@contoso.com",
		"jobTitle": "Engineer",
		"sub": "sub-1",
		"oid": "oid-1",
		"tid": "tid-1",
		"roles": ["Admin", "Reader", 7]
	}`), &claims))

	id := claims.Identity()
	require.Equal(t, identity.Identity{
		Name:              "Alice Example",
		PreferredUsername: "alice@contoso.com",
		JobTitle:          "Engineer",
		Subject:           "sub-1",
		ObjectID:          "oid-1",
		TenantID:          "tid-1",
		Email:             "alice@contoso.com",
		Roles:             []string{"Admin", "Reader"},
	}, id)
	require.Equal(t, "Alice Example", id.DisplayName())
}

func TestIdentityDisplayNameFallbacks(t *testing.T) {
	require.Equal(t, "alice@contoso.com", identity.Identity{PreferredUsername: "alice@contoso.com", Subject: "s"}.DisplayName())
	require.Equal(t, "s", identity.Identity{Subject: "s"}.DisplayName())
}

func TestClaimsStrings(t *testing.T) {
	claims := identity.Claims{"single": "one", "empty": "", "number": 3}
	require.Equal(t, []string{"one"}, claims.Strings("single"))
	require.Nil(t, claims.Strings("empty"))
	require.Nil(t, claims.Strings("number"))
	require.Empty(t, claims.String("number"))
	require.False(t, claims.Empty())
	require.True(t, identity.Claims{}.Empty())
}
