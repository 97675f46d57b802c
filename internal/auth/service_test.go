package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/auth"
	"github.com/healthcompanion/companion/internal/shared"
)

func TestSignupCreatesAccountAndToken(t *testing.T) {
	store := newMemStore()
	events := &recordingEvents{}
	svc := newTestService(store).WithEvents(events)

	session, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.Account.Email)
	assert.Equal(t, "1990-12-10", session.Account.PublicUser().DateOfBirth)
	assert.NotEqual(t, "Abcdefg1", session.Account.PasswordHash)

	identity, err := svc.Tokens().Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Account.ID, identity.AccountID)
	assert.Equal(t, []string{"ada@example.com"}, events.created)
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	req := validSignup()
	req.Password = "abcdefg1"

	_, err := newTestService(newMemStore()).Signup(context.Background(), req)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "uppercase")
}

func TestSignupRejectsDuplicateEmailAnyCase(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	again := validSignup()
	again.Email = "  ADA@example.COM "
	_, err = svc.Signup(context.Background(), again)
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)
}

func TestSignupStoreFailureIsInternal(t *testing.T) {
	store := newMemStore()
	store.failNext = errors.New("connection reset")

	_, err := newTestService(store).Signup(context.Background(), validSignup())
	require.ErrorIs(t, err, shared.ErrInternal)
}

func TestSignupSucceedsWhenPublishFails(t *testing.T) {
	events := &recordingEvents{err: errors.New("queue down")}
	session, err := newTestService(newMemStore()).WithEvents(events).Signup(context.Background(), validSignup())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestSigninAfterSignupReturnsSameIdentity(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	created, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	session, err := svc.Signin(context.Background(), auth.SigninRequest{Email: "ADA@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	assert.Equal(t, created.Account.ID, session.Account.ID)

	identity, err := svc.Tokens().Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, created.Account.ID, identity.AccountID)

	state := store.login("ada@example.com")
	assert.Zero(t, state.Attempts)
	assert.NotNil(t, state.LastLogin)
}

func TestSigninRequiresEmailAndPassword(t *testing.T) {
	_, err := newTestService(newMemStore()).Signin(context.Background(), auth.SigninRequest{Email: " "})
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, "Email and password required", err.Error())
}

func TestSigninUnknownEmail(t *testing.T) {
	_, err := newTestService(newMemStore()).Signin(context.Background(), auth.SigninRequest{Email: "nobody@example.com", Password: "Abcdefg1"})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Equal(t, "Invalid email or password", err.Error())
}

func TestSigninCountsFailuresAndLocks(t *testing.T) {
	store := newMemStore()
	events := &recordingEvents{}
	profiles := &recordingInvalidator{}
	svc := newTestService(store).WithEvents(events).WithProfileCache(profiles)
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	wrong := auth.SigninRequest{Email: "ada@example.com", Password: "Wrongpass1"}
	for i := 1; i <= 4; i++ {
		_, err := svc.Signin(context.Background(), wrong)
		var creds *shared.CredentialsError
		require.True(t, errors.As(err, &creds))
		assert.Equal(t, 5-i, creds.AttemptsLeft)
	}

	_, err = svc.Signin(context.Background(), wrong)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Equal(t, "Account locked due to multiple failed attempts.", err.Error())
	assert.Equal(t, []string{"ada@example.com"}, events.locked)
	assert.Len(t, profiles.ids, 5)

	// The correct password is not checked while locked.
	_, err = svc.Signin(context.Background(), auth.SigninRequest{Email: "ada@example.com", Password: "Abcdefg1"})
	require.ErrorIs(t, err, shared.ErrAccountLocked)
	var locked *shared.LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, 120, locked.RemainingMinutes())
	assert.Equal(t, 5, store.login("ada@example.com").Attempts)
}

func TestSigninAfterLockExpiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	wrong := auth.SigninRequest{Email: "ada@example.com", Password: "Wrongpass1"}
	for i := 0; i < 5; i++ {
		_, _ = svc.Signin(context.Background(), wrong)
	}
	store.setLockUntil("ada@example.com", time.Now().Add(-time.Second))

	_, err = svc.Signin(context.Background(), wrong)
	var creds *shared.CredentialsError
	require.True(t, errors.As(err, &creds))
	assert.Equal(t, 4, creds.AttemptsLeft)
	assert.Equal(t, 1, store.login("ada@example.com").Attempts)

	_, err = svc.Signin(context.Background(), auth.SigninRequest{Email: "ada@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)
	assert.Zero(t, store.login("ada@example.com").Attempts)
}

func TestSigninStoreFailureIsInternal(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	store.failNext = errors.New("timeout")
	_, err = svc.Signin(context.Background(), auth.SigninRequest{Email: "ada@example.com", Password: "Abcdefg1"})
	require.ErrorIs(t, err, shared.ErrInternal)
}

type stalledEvents struct{ deadlines []bool }

func (s *stalledEvents) wait(ctx context.Context) error {
	_, ok := ctx.Deadline()
	s.deadlines = append(s.deadlines, ok)
	<-ctx.Done()
	return ctx.Err()
}

func (s *stalledEvents) AccountCreated(ctx context.Context, _ accounts.Account) error { return s.wait(ctx) }
func (s *stalledEvents) AccountLocked(ctx context.Context, _ accounts.Account) error { return s.wait(ctx) }
func (s *stalledEvents) Invalidate(ctx context.Context, _ string) error { return s.wait(ctx) }

func TestSideEffectsAreTimeBounded(t *testing.T) {
	stalled := &stalledEvents{}
	svc := newTestService(newMemStore()).WithEvents(stalled).WithProfileCache(stalled)

	start := time.Now()
	_, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)
	_, err = svc.Signin(context.Background(), auth.SigninRequest{Email: "ada@example.com", Password: "Abcdefg1"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 3*time.Second)
	require.Len(t, stalled.deadlines, 2)
	assert.Equal(t, []bool{true, true}, stalled.deadlines)
}
