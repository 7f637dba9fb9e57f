package identity_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-entra-webapp/identity"
	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredFailsDeterministically(t *testing.T) {
	client := identity.NewUnconfigured([]string{"AZURE_CLIENT_ID"})

	for i := 0; i < 2; i++ {
		_, err := client.AuthorizationURL(context.Background(), identity.AuthorizationRequest{RedirectURI: testRedirectURI})
		require.ErrorIs(t, err, errs.ErrConfigurationMissing)
		require.ErrorContains(t, err, "AZURE_CLIENT_ID")

		_, err = client.ExchangeCode(context.Background(), "code", identity.ExchangeRequest{})
		require.ErrorIs(t, err, errs.ErrConfigurationMissing)
		require.NotErrorIs(t, err, errs.ErrProviderExchange)
	}

	require.Equal(t, "/", client.EndSessionURL(""))
	require.Equal(t, "http://localhost:8000/", client.EndSessionURL("http://localhost:8000/"))
}

func TestEntraEndpoints(t *testing.T) {
	ep := identity.EntraEndpoints("https://login.microsoftonline.com/contoso/")
	require.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/authorize", ep.AuthURL)
	require.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/token", ep.TokenURL)
	require.Equal(t, "https://login.microsoftonline.com/contoso/discovery/v2.0/keys", ep.KeysURL)
	require.Equal(t, "https://login.microsoftonline.com/contoso/v2.0", ep.Issuer)
}

func TestNewMSALClientValidatesSettings(t *testing.T) {
	_, err := identity.NewMSALClient(identity.Settings{
		ClientID:  "client",
		Authority: "https://login.microsoftonline.com/contoso",
	})
	require.ErrorContains(t, err, "client secret is required")

	client, err := identity.NewMSALClient(identity.Settings{
		ClientID:     "client",
		ClientSecret: "secret",
		Authority:    "https://login.microsoftonline.com/contoso",
	})
	require.NoError(t, err)
	require.Equal(t,
		"https://login.microsoftonline.com/contoso/oauth2/v2.0/logout?post_logout_redirect_uri=https%3A%2F%2Fapp.example.com%2F",
		client.EndSessionURL("https://app.example.com/"))
}
