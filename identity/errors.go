package identity

import (
	"fmt"

	errs "github.com/jrsteele09/go-entra-webapp/internal/errors"
)

// Error codes used when the provider did not supply one.
const (
	CodeConfigurationMissing = "configuration_missing"
	CodeTimeout              = "timeout"
	CodeUnreachable          = "temporarily_unavailable"
	CodeMissingIDToken       = "missing_id_token"
	CodeInvalidIDToken       = "invalid_id_token"
	CodeNonceMismatch        = "nonce_mismatch"
	CodeInvalidRequest       = "invalid_request"
)

// AuthError is the structured failure of an authorization request or a code
// exchange. Code and Description mirror the OAuth2 error and
// error_description fields.
type AuthError struct {
	Code        string
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap exposes the error kind and the underlying cause.
func (e *AuthError) Unwrap() []error {
	kind := errs.ErrProviderExchange
	if e.Code == CodeConfigurationMissing {
		kind = errs.ErrConfigurationMissing
	}
	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}
