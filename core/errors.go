package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                = errors.New("validation failed")
	ErrChallengeExpiredOrMissing = errors.New("challenge expired or missing")
	ErrChallengeMismatch         = errors.New("challenge code mismatch")
	ErrUnknownUser               = errors.New("unknown user")
	ErrUnauthenticated           = errors.New("missing credential")
	ErrInvalidCredential         = errors.New("invalid credential")
	ErrUserNotFound              = errors.New("user not found")
)

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Missing returns a ValidationError for field
func Missing(field string) error {
	return &ValidationError{Field: field}
}
