package auth

import (
	"time"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/shared"
)

// Default lockout policy.
const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 2 * time.Hour
)

// Guard implements the login-attempt state machine. It only computes state
// transitions; callers persist the result.
type Guard struct {
	maxAttempts  int
	lockDuration time.Duration
	now          func() time.Time
}

// NewGuard constructs a Guard with the given policy.
func NewGuard(maxAttempts int, lockDuration time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockDuration
	}
	return &Guard{maxAttempts: maxAttempts, lockDuration: lockDuration, now: time.Now}
}

// WithClock returns a copy of g reading time from now.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	clone := *g
	clone.now = now
	return &clone
}

// MaxAttempts returns the number of failures that lock an account.
func (g *Guard) MaxAttempts() int { return g.maxAttempts }

// LockDuration returns the lockout window length.
func (g *Guard) LockDuration() time.Duration { return g.lockDuration }

// Locked reports whether state is inside an active lockout window.
func (g *Guard) Locked(state accounts.LoginState) bool {
	return state.LockUntil != nil && state.LockUntil.After(g.now())
}

// Check rejects attempts made during an active lockout window.
func (g *Guard) Check(state accounts.LoginState) error {
	if !g.Locked(state) {
		return nil
	}
	return &shared.LockedError{Until: *state.LockUntil, Remaining: state.LockUntil.Sub(g.now())}
}

// RecordFailure returns the state after a failed password check. An elapsed
// lock restarts counting at one.
func (g *Guard) RecordFailure(state accounts.LoginState) accounts.LoginState {
	now := g.now()
	if state.LockUntil != nil && !state.LockUntil.After(now) {
		state.Attempts = 1
		state.LockUntil = nil
		return state
	}
	state.Attempts++
	if state.Attempts >= g.maxAttempts {
		until := now.Add(g.lockDuration)
		state.LockUntil = &until
	}
	return state
}

// RecordSuccess returns the state after a successful password check.
func (g *Guard) RecordSuccess(state accounts.LoginState) accounts.LoginState {
	now := g.now()
	state.Attempts = 0
	state.LockUntil = nil
	state.LastLogin = &now
	return state
}

// AttemptsLeft returns how many failures remain before the account locks.
func (g *Guard) AttemptsLeft(state accounts.LoginState) int {
	return max(0, g.maxAttempts-state.Attempts)
}
