package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned by conditional writes that lost to an existing value.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAuthentication covers both unknown users and wrong passwords.
	ErrAuthentication = errors.New("incorrect username or password")

	ErrMissingToken     = errors.New("authorization token is missing")
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token has expired")
	ErrWrongTokenType   = errors.New("wrong token type")
	ErrTokenRevoked     = errors.New("token revoked")
	ErrTokenMismatch    = errors.New("refresh token mismatch")

	ErrInactiveUser = errors.New("inactive user")
	ErrForbidden    = errors.New("insufficient role")
	ErrMFARequired  = errors.New("mfa verification required")
	ErrRateLimited  = errors.New("too many requests")

	ErrDecryption       = errors.New("decryption failed")
	ErrKeyStore         = errors.New("key store failure")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes rejected client input.
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Is reports ErrValidation as the sentinel for all validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsInvalidToken reports whether err belongs to the invalid-token family.
func IsInvalidToken(err error) bool {
	for _, target := range []error{
		ErrMissingToken, ErrMalformedToken, ErrInvalidSignature, ErrExpiredToken,
		ErrWrongTokenType, ErrTokenRevoked, ErrTokenMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
