package errors

import (
	"errors"
	"fmt"
)

// Common error types for the account gateway. Provider-reported failures are
// mapped onto these sentinels at the identity client boundary so handlers can
// translate them into a fixed message catalog.
var (
	// Validation errors
	ErrInvalidEmail = errors.New("invalid email address")
	ErrWeakPassword = errors.New("password is too weak")
	ErrMissingField = errors.New("missing required field")

	// Identity provider errors
	ErrEmailExists        = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUserNotVerified    = errors.New("email address is not verified")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Session errors
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionNotFound = errors.New("session not found")

	// Document store errors
	ErrProfileNotFound = errors.New("profile not found")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
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
