// Package fakeentra is an in-process stand-in for the Microsoft identity
// platform v2.0 endpoints used by the authorization-code flow.
package fakeentra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TenantID     = "00000000-0000-0000-0000-0000000000aa"
	ClientID     = "11111111-2222-3333-4444-555555555555"
	ClientSecret = "fake-client-secret"
	keyID        = "fake-key-1"
)

type issuedCode struct {
	claims        map[string]any
	redirectURI   string
	nonce         string
	codeChallenge string
}

// Server issues codes and signed ID tokens for a single tenant.
type Server struct {
	srv *httptest.Server
	key *rsa.PrivateKey

	mu       sync.Mutex
	codes    map[string]issuedCode
	nextUser map[string]any
	delay    time.Duration

	tokenRequests atomic.Int64
}

// New starts the fake provider over plain HTTP. Close it when done.
func New() (*Server, error) {
	return start(httptest.NewServer)
}

// NewTLS starts the fake provider over HTTPS. Clients must use Client(),
// which trusts the server's certificate.
func NewTLS() (*Server, error) {
	return start(httptest.NewTLSServer)
}

func start(serve func(http.Handler) *httptest.Server) (*Server, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	s := &Server{
		key:   key,
		codes: make(map[string]issuedCode),
		nextUser: map[string]any{
			"sub":                "subject-alice",
			"oid":                "object-alice",
			"name":               "Alice Example",
			"preferred_username": "alice@example.com",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{tenant}/oauth2/v2.0/authorize", s.authorize)
	mux.HandleFunc("POST /{tenant}/oauth2/v2.0/token", s.token)
	mux.HandleFunc("GET /{tenant}/oauth2/v2.0/logout", s.logout)
	mux.HandleFunc("GET /{tenant}/discovery/v2.0/keys", s.keys)
	mux.HandleFunc("GET /{tenant}/v2.0/.well-known/openid-configuration", s.openIDConfiguration)
	s.srv = serve(mux)
	return s, nil
}

func (s *Server) Close() { s.srv.Close() }

// Client returns an HTTP client that trusts the server, including its TLS
// certificate when started with NewTLS.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// URL is the authority host, e.g. http://127.0.0.1:port
func (s *Server) URL() string { return s.srv.URL }

// Authority is the tenant authority URL to configure the client with.
func (s *Server) Authority() string { return s.srv.URL + "/" + TenantID }

// Issuer is the value placed in the iss claim.
func (s *Server) Issuer() string { return s.Authority() + "/v2.0" }

// TokenRequests counts calls to the token endpoint.
func (s *Server) TokenRequests() int64 { return s.tokenRequests.Load() }

// SetNextUser sets the claims of the user who "signs in" at the authorize endpoint.
func (s *Server) SetNextUser(claims map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser = claims
}

// SetTokenDelay slows down the token endpoint.
func (s *Server) SetTokenDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// IssueCode registers a code directly, bypassing the authorize endpoint.
func (s *Server) IssueCode(claims map[string]any, redirectURI, nonce string) string {
	code := randomString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = issuedCode{claims: claims, redirectURI: redirectURI, nonce: nonce}
	return code
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("client_id") != ClientID {
		http.Error(w, "unknown client", http.StatusBadRequest)
		return
	}
	redirectURI := q.Get("redirect_uri")
	target, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		http.Error(w, "invalid redirect_uri", http.StatusBadRequest)
		return
	}

	code := randomString()
	s.mu.Lock()
	s.codes[code] = issuedCode{
		claims:        s.nextUser,
		redirectURI:   redirectURI,
		nonce:         q.Get("nonce"),
		codeChallenge: q.Get("code_challenge"),
	}
	s.mu.Unlock()

	params := target.Query()
	params.Set("code", code)
	if state := q.Get("state"); state != "" {
		params.Set("state", state)
	}
	target.RawQuery = params.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.tokenRequests.Add(1)

	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, "invalid_request", "AADSTS900144: malformed request body")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeError(w, "unsupported_grant_type", "AADSTS70003: grant type not supported")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeError(w, "invalid_client", "AADSTS7000215: Invalid client secret provided.")
		return
	}

	code := r.PostForm.Get("code")
	s.mu.Lock()
	issued, ok := s.codes[code]
	delete(s.codes, code)
	s.mu.Unlock()

	if !ok {
		writeError(w, "invalid_grant", "AADSTS70008: The provided authorization code or refresh token has expired due to inactivity.")
		return
	}
	if issued.redirectURI != "" && issued.redirectURI != r.PostForm.Get("redirect_uri") {
		writeError(w, "invalid_grant", "AADSTS50148: The redirect_uri does not match the one used in the authorization request.")
		return
	}
	if issued.codeChallenge != "" {
		sum := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if base64.RawURLEncoding.EncodeToString(sum[:]) != issued.codeChallenge {
			writeError(w, "invalid_grant", "AADSTS501481: The Code_Verifier does not match the code_challenge supplied in the authorization request.")
			return
		}
	}

	idToken, err := s.SignIDToken(issued.claims, issued.nonce)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"token_type":   "Bearer",
		"scope":        r.PostForm.Get("scope"),
		"expires_in":   3600,
		"access_token": "fake-access-token",
		"id_token":     idToken,
	})
}

// SignIDToken mints an ID token for the configured client.
func (s *Server) SignIDToken(claims map[string]any, nonce string) (string, error) {
	now := time.Now()
	mapClaims := jwt.MapClaims{
		"iss": s.Issuer(),
		"aud": ClientID,
		"tid": TenantID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		mapClaims[k] = v
	}
	if nonce != "" {
		mapClaims["nonce"] = nonce
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, mapClaims)
	token.Header["kid"] = keyID
	return token.SignedString(s.key)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "signed out, continue to %s", r.URL.Query().Get("post_logout_redirect_uri"))
}

func (s *Server) openIDConfiguration(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                s.Issuer(),
		"authorization_endpoint":                s.Authority() + "/oauth2/v2.0/authorize",
		"token_endpoint":                        s.Authority() + "/oauth2/v2.0/token",
		"end_session_endpoint":                  s.Authority() + "/oauth2/v2.0/logout",
		"jwks_uri":                              s.Authority() + "/discovery/v2.0/keys",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"pairwise"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (s *Server) keys(w http.ResponseWriter, _ *http.Request) {
	set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &s.key.PublicKey,
		KeyID:     keyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(set)
}

func writeError(w http.ResponseWriter, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

func randomString() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
