package service

import (
	"errors"
	"fmt"
)

// Named authentication outcomes. Account lookup misses and wrong passwords
// both surface as ErrInvalidCredentials so callers cannot enumerate
// accounts; the distinction survives only in logs.
var (
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrTwoFactorCodeRequired     = errors.New("two-factor authentication code required")
	ErrInvalidAuthenticationCode = errors.New("invalid authentication code")

	ErrAccountNotFound     = errors.New("account does not exist")
	ErrEmailAlreadyExists  = errors.New("email already registered")
	ErrTokenRateLimited    = errors.New("token request rate limited")
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrOAuthAccountNoReset = errors.New("cannot reset the password for an oauth account")
	ErrEmailDelivery       = errors.New("email delivery failed")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidSessionDelta = errors.New("invalid session settings")
)

// EmailNotVerifiedError carries the email so the caller can redirect the
// user into the verification flow.
type EmailNotVerifiedError struct {
	Email string
}

func (e *EmailNotVerifiedError) Error() string {
	return fmt.Sprintf("email %s is not verified", e.Email)
}
