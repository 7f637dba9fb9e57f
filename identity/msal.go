package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/confidential"
	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// MSALClient drives the flow through Microsoft's confidential client library.
// Unlike OIDCClient, building the authorization URL resolves the authority
// metadata over the network on first use.
type MSALClient struct {
	settings  Settings
	endpoints Endpoints
	app       confidential.Client
}

var _ Client = (*MSALClient)(nil)

func NewMSALClient(settings Settings) (*MSALClient, error) {
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("[identity NewMSALClient] %w", err)
	}

	cred, err := confidential.NewCredFromSecret(settings.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("[identity NewMSALClient] credential: %w", err)
	}

	var opts []confidential.Option
	if settings.HTTPClient != nil {
		opts = append(opts, confidential.WithHTTPClient(settings.HTTPClient))
	}
	if settings.DisableInstanceDiscovery {
		opts = append(opts, confidential.WithInstanceDiscovery(false))
	}
	app, err := confidential.New(settings.Authority, settings.ClientID, cred, opts...)
	if err != nil {
		return nil, fmt.Errorf("[identity NewMSALClient] confidential client: %w", err)
	}

	return &MSALClient{
		settings:  settings,
		endpoints: EntraEndpoints(settings.Authority),
		app:       app,
	}, nil
}

func (c *MSALClient) AuthorizationURL(ctx context.Context, req AuthorizationRequest) (string, error) {
	if req.RedirectURI == "" {
		return "", &AuthError{Code: CodeInvalidRequest, Description: "redirect URI is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.timeout())
	defer cancel()

	raw, err := c.app.AuthCodeURL(ctx, c.settings.ClientID, req.RedirectURI, withoutReservedScopes(req.Scopes))
	if err != nil {
		return "", msalError(ctx, err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &AuthError{Code: CodeInvalidRequest, Description: "malformed authorization URL", Err: err}
	}
	q := u.Query()
	if req.State != "" {
		q.Set("state", req.State)
	}
	if req.Nonce != "" {
		q.Set("nonce", req.Nonce)
	}
	if req.CodeVerifier != "" {
		q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(req.CodeVerifier))
		q.Set("code_challenge_method", "S256")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *MSALClient) ExchangeCode(ctx context.Context, code string, req ExchangeRequest) (Claims, error) {
	if code == "" {
		return nil, &AuthError{Code: CodeInvalidRequest, Description: "authorization code is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.settings.timeout())
	defer cancel()

	var opts []confidential.AcquireByAuthCodeOption
	if req.CodeVerifier != "" {
		opts = append(opts, confidential.WithChallenge(req.CodeVerifier))
	}

	result, err := c.app.AcquireTokenByAuthCode(ctx, code, req.RedirectURI, withoutReservedScopes(req.Scopes), opts...)
	if err != nil {
		return nil, msalError(ctx, err)
	}

	claims, err := parseIDTokenClaims(result.IDToken.RawToken)
	if err != nil {
		return nil, err
	}
	if req.Nonce != "" && claims.String("nonce") != req.Nonce {
		return nil, &AuthError{Code: CodeNonceMismatch, Description: "ID token nonce does not match the sign-in request"}
	}
	return claims, nil
}

func (c *MSALClient) EndSessionURL(postLogoutRedirectURI string) string {
	return c.endpoints.EndSessionURL(postLogoutRedirectURI)
}

// parseIDTokenClaims decodes the ID token payload. The token came straight from
// the token endpoint over TLS, which is the only assurance MSAL relies on too.
func parseIDTokenClaims(raw string) (Claims, error) {
	if raw == "" {
		return nil, &AuthError{Code: CodeMissingIDToken, Description: "no ID token in the token response"}
	}
	mapClaims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mapClaims); err != nil {
		return nil, &AuthError{Code: CodeInvalidIDToken, Description: "ID token could not be parsed", Err: err}
	}
	return Claims(mapClaims), nil
}

// msalError maps an MSAL call error onto AuthError. For non-2xx replies MSAL
// puts the response body after the first newline of the call error text.
func msalError(ctx context.Context, err error) *AuthError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &AuthError{Code: CodeTimeout, Description: "the identity provider did not respond in time", Err: err}
	}

	var callErr msalerrors.CallErr
	if errors.As(err, &callErr) && callErr.Err != nil {
		if body, ok := oauthErrorBody(callErr.Err.Error()); ok {
			return &AuthError{Code: body.Error, Description: body.ErrorDescription, Err: err}
		}
	}
	return &AuthError{Code: CodeUnreachable, Description: err.Error(), Err: err}
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func oauthErrorBody(msg string) (oauthErrorResponse, bool) {
	_, body, found := strings.Cut(msg, "\n")
	if !found {
		return oauthErrorResponse{}, false
	}
	var resp oauthErrorResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &resp); err != nil || resp.Error == "" {
		return oauthErrorResponse{}, false
	}
	return resp, true
}
