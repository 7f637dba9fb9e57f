package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OIDCClient performs the authorization-code flow with golang.org/x/oauth2 and
// verifies the returned ID token against the tenant signing keys.
type OIDCClient struct {
	settings  Settings
	endpoints Endpoints
	verifier  *oidc.IDTokenVerifier
}

var _ Client = (*OIDCClient)(nil)

// NewOIDCClient builds a client for settings.Authority. ctx is retained by the
// key set for fetching signing keys and should outlive the client.
func NewOIDCClient(ctx context.Context, settings Settings) (*OIDCClient, error) {
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("[identity NewOIDCClient] %w", err)
	}
	endpoints := EntraEndpoints(settings.Authority)

	if settings.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, settings.HTTPClient)
	}
	keySet := oidc.NewRemoteKeySet(ctx, endpoints.KeysURL)
	verifier := oidc.NewVerifier(endpoints.Issuer, keySet, &oidc.Config{
		ClientID:        settings.ClientID,
		SkipIssuerCheck: endpoints.multiTenant(),
	})

	return &OIDCClient{
		settings:  settings,
		endpoints: endpoints,
		verifier:  verifier,
	}, nil
}

func (c *OIDCClient) oauth2Config(scopes []string, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.settings.ClientID,
		ClientSecret: c.settings.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.endpoints.AuthURL,
			TokenURL:  c.endpoints.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      withOpenIDScopes(scopes),
	}
}

// AuthorizationURL is pure string construction.
func (c *OIDCClient) AuthorizationURL(_ context.Context, req AuthorizationRequest) (string, error) {
	if req.RedirectURI == "" {
		return "", &AuthError{Code: CodeInvalidRequest, Description: "redirect URI is required"}
	}
	var opts []oauth2.AuthCodeOption
	if req.Nonce != "" {
		opts = append(opts, oidc.Nonce(req.Nonce))
	}
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(req.CodeVerifier))
	}
	return c.oauth2Config(req.Scopes, req.RedirectURI).AuthCodeURL(req.State, opts...), nil
}

func (c *OIDCClient) ExchangeCode(ctx context.Context, code string, req ExchangeRequest) (Claims, error) {
	if code == "" {
		return nil, &AuthError{Code: CodeInvalidRequest, Description: "authorization code is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.timeout())
	defer cancel()
	if c.settings.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.settings.HTTPClient)
	}

	var opts []oauth2.AuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}

	token, err := c.oauth2Config(req.Scopes, req.RedirectURI).Exchange(ctx, code, opts...)
	if err != nil {
		return nil, exchangeError(ctx, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, &AuthError{Code: CodeMissingIDToken, Description: "no ID token in the token response"}
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		if ctx.Err() != nil {
			return nil, exchangeError(ctx, err)
		}
		return nil, &AuthError{Code: CodeInvalidIDToken, Description: "ID token verification failed", Err: err}
	}
	if req.Nonce != "" && idToken.Nonce != req.Nonce {
		return nil, &AuthError{Code: CodeNonceMismatch, Description: "ID token nonce does not match the sign-in request"}
	}

	claims := Claims{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, &AuthError{Code: CodeInvalidIDToken, Description: "ID token claims could not be decoded", Err: err}
	}
	return claims, nil
}

func (c *OIDCClient) EndSessionURL(postLogoutRedirectURI string) string {
	return c.endpoints.EndSessionURL(postLogoutRedirectURI)
}

// exchangeError maps token endpoint failures onto AuthError.
func exchangeError(ctx context.Context, err error) *AuthError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &AuthError{Code: CodeTimeout, Description: "the identity provider did not respond in time", Err: err}
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		authErr := &AuthError{Code: re.ErrorCode, Description: re.ErrorDescription, Err: err}
		if authErr.Code == "" {
			status := http.StatusInternalServerError
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			authErr.Code = fmt.Sprintf("http_%d", status)
		}
		if authErr.Description == "" {
			authErr.Description = strings.TrimSpace(string(re.Body))
		}
		return authErr
	}

	log.Warn().Err(err).Msg("token endpoint unreachable")
	return &AuthError{Code: CodeUnreachable, Description: "the identity provider could not be reached", Err: err}
}
