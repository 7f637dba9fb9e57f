package errors

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the sign-in service
var (
	// Callback errors
	ErrMissingAuthorizationCode = errors.New("missing authorization code")
	ErrInvalidState             = errors.New("invalid or unknown state")

	// Identity provider errors
	ErrProviderExchange     = errors.New("identity provider exchange failed")
	ErrConfigurationMissing = errors.New("identity provider configuration missing")

	// Guard errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
