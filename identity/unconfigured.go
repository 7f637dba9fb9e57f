package identity

import (
	"context"
	"fmt"
)

// Unconfigured fails every request with configuration_missing.
type Unconfigured struct {
	missing []string
}

var _ Client = (*Unconfigured)(nil)

func NewUnconfigured(missing []string) *Unconfigured {
	return &Unconfigured{missing: missing}
}

func (u *Unconfigured) err() error {
	return &AuthError{
		Code:        CodeConfigurationMissing,
		Description: fmt.Sprintf("the application is not configured for sign-in, missing %v", u.missing),
	}
}

func (u *Unconfigured) AuthorizationURL(context.Context, AuthorizationRequest) (string, error) {
	return "", u.err()
}

func (u *Unconfigured) ExchangeCode(context.Context, string, ExchangeRequest) (Claims, error) {
	return nil, u.err()
}

// EndSessionURL skips the provider entirely; there is no provider session.
func (u *Unconfigured) EndSessionURL(postLogoutRedirectURI string) string {
	if postLogoutRedirectURI == "" {
		return "/"
	}
	return postLogoutRedirectURI
}
