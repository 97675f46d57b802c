package shared

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrValidation indicates missing or malformed request fields.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountLocked indicates the account is inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrTokenMissing indicates a protected request carried no bearer token.
	ErrTokenMissing = errors.New("access token required")
	// ErrTokenInvalid indicates a malformed, forged or expired bearer token.
	ErrTokenInvalid = errors.New("invalid or expired token")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInternal indicates a store or hashing failure.
	ErrInternal = errors.New("internal error")
)

// ValidationError lists the field problems found in a request.
type ValidationError struct {
	Messages []string
}

// NewValidationError builds a ValidationError from one or more messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return strings.Join(e.Messages, ". ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CredentialsError reports a failed password check. AttemptsLeft is negative
// when no hint should be given, e.g. for unknown emails.
type CredentialsError struct {
	AttemptsLeft int
}

func (e *CredentialsError) Error() string {
	switch {
	case e.AttemptsLeft < 0:
		return "Invalid email or password"
	case e.AttemptsLeft == 0:
		return "Account locked due to multiple failed attempts."
	default:
		return fmt.Sprintf("Invalid email or password. %d attempt(s) remaining.", e.AttemptsLeft)
	}
}

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// LockedError reports an active lockout window.
type LockedError struct {
	Until     time.Time
	Remaining time.Duration
}

// RemainingMinutes rounds the remaining lock time up to whole minutes.
func (e *LockedError) RemainingMinutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("Account locked. Try again in %d minutes.", e.RemainingMinutes())
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }
