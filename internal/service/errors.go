package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnverifiedExists   = errors.New("email already registered but not verified")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNotVerified        = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrNoPendingReset     = errors.New("no password reset pending")
	ErrEmailNotFound      = errors.New("no account with that email")
	ErrEmailDelivery      = errors.New("failed to send email")
)

// RateLimitError reports a cooldown violation with the remaining wait.
type RateLimitError struct {
	RetryAfter int // whole seconds
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another email", e.RetryAfter)
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}
