package identity

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-entra-webapp/internal/config"
)

// Client talks to the identity provider on behalf of the web app.
type Client interface {
	// AuthorizationURL builds the URL the browser is sent to for sign-in.
	AuthorizationURL(ctx context.Context, req AuthorizationRequest) (string, error)
	// ExchangeCode redeems a single-use authorization code for identity claims.
	// Failures are returned as *AuthError.
	ExchangeCode(ctx context.Context, code string, req ExchangeRequest) (Claims, error)
	// EndSessionURL is the provider logout URL.
	EndSessionURL(postLogoutRedirectURI string) string
}

type AuthorizationRequest struct {
	Scopes       []string
	RedirectURI  string
	State        string
	Nonce        string
	CodeVerifier string // PKCE verifier; only its S256 challenge is sent
}

type ExchangeRequest struct {
	Scopes       []string
	RedirectURI  string
	Nonce        string // compared with the ID token nonce when set
	CodeVerifier string
}

// Settings is the immutable provider configuration handed to a backend.
type Settings struct {
	ClientID        string
	ClientSecret    string
	Authority       string
	ExchangeTimeout time.Duration
	HTTPClient      *http.Client
	// DisableInstanceDiscovery skips MSAL's authority validation against
	// login.microsoftonline.com, for sovereign or private clouds.
	DisableInstanceDiscovery bool
}

func (s Settings) validate() error {
	switch {
	case s.ClientID == "":
		return fmt.Errorf("client id is required")
	case s.ClientSecret == "":
		return fmt.Errorf("client secret is required")
	case s.Authority == "":
		return fmt.Errorf("authority is required")
	}
	return nil
}

func (s Settings) timeout() time.Duration {
	if s.ExchangeTimeout <= 0 {
		return 10 * time.Second
	}
	return s.ExchangeTimeout
}

// New returns the backend selected by configuration. When required settings are
// missing an Unconfigured client is returned so that every login attempt fails
// the same way instead of the process refusing to start.
func New(ctx context.Context, c config.IdentityConfig, httpClient *http.Client) (Client, error) {
	if missing := c.MissingIdentitySettings(); len(missing) > 0 {
		return NewUnconfigured(missing), nil
	}

	settings := Settings{
		ClientID:        c.GetClientID(),
		ClientSecret:    c.GetClientSecret(),
		Authority:       c.GetAuthority(),
		ExchangeTimeout: c.GetExchangeTimeout(),
		HTTPClient:      httpClient,

		DisableInstanceDiscovery: !c.GetInstanceDiscovery(),
	}

	switch c.GetClientKind() {
	case config.ClientKindMSAL:
		return NewMSALClient(settings)
	case config.ClientKindOIDC, "":
		return NewOIDCClient(ctx, settings)
	default:
		return nil, fmt.Errorf("unsupported identity client %q", c.GetClientKind())
	}
}
