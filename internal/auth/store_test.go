package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/auth"
	"github.com/healthcompanion/companion/internal/shared"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memStore struct {
	mu       sync.Mutex
	byID     map[string]*accounts.Account
	byEmail  map[string]string
	failNext error
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*accounts.Account{}, byEmail: map[string]string{}}
}

func (m *memStore) Create(_ context.Context, account *accounts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	email := accounts.NormalizeEmail(account.Email)
	if _, ok := m.byEmail[email]; ok {
		return shared.ErrDuplicateEmail
	}
	account.ID = uuid.NewString()
	account.Email = email
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	stored := *account
	m.byID[account.ID] = &stored
	m.byEmail[email] = account.ID
	return nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	id, ok := m.byEmail[accounts.NormalizeEmail(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *m.byID[id]
	return &copied, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*accounts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *memStore) UpdateLoginState(_ context.Context, id string, state accounts.LoginState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	account, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	account.Login = state
	return nil
}

func (m *memStore) UpdateProfile(_ context.Context, id string, update accounts.ProfileUpdate) (*accounts.Account, error) {
	return nil, errors.New("not used")
}

func (m *memStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *memStore) login(email string) accounts.LoginState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[m.byEmail[accounts.NormalizeEmail(email)]].Login
}

func (m *memStore) setLockUntil(email string, until time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[m.byEmail[accounts.NormalizeEmail(email)]].Login.LockUntil = &until
}

type recordingEvents struct {
	mu      sync.Mutex
	created []string
	locked  []string
	err     error
}

func (r *recordingEvents) AccountCreated(_ context.Context, account accounts.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, account.Email)
	return r.err
}

func (r *recordingEvents) AccountLocked(_ context.Context, account accounts.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = append(r.locked, account.Email)
	return r.err
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return nil
}

func newTestService(store accounts.Store) *auth.Service {
	return auth.NewService(
		store,
		auth.NewHasher(bcrypt.MinCost),
		auth.NewGuard(auth.DefaultMaxAttempts, auth.DefaultLockDuration),
		auth.NewTokenIssuer(testSecret, "companion-test", time.Hour),
	)
}

func validSignup() accounts.SignupRequest {
	return accounts.SignupRequest{
		Name:        "Ada Lovelace",
		Email:       "Ada@Example.com",
		Password:    "Abcdefg1",
		Phone:       "+1 555 0100",
		Location:    "London",
		DateOfBirth: "1990-12-10",
		Gender:      "female",
	}
}
