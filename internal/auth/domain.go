package auth

import (
	"context"

	"github.com/healthcompanion/companion/internal/accounts"
)

// Session is the outcome of a successful signup or signin.
type Session struct {
	Token   string
	Account *accounts.Account
}

// SigninRequest is the payload of a signin call.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EventPublisher announces account lifecycle events. Implementations should
// not block for long; failures are logged, never surfaced to callers.
type EventPublisher interface {
	AccountCreated(ctx context.Context, account accounts.Account) error
	AccountLocked(ctx context.Context, account accounts.Account) error
}

// ProfileInvalidator drops cached profile views after login state changes.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, accountID string) error
}
