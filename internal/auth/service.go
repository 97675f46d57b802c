package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/shared"
)

// sideEffectTimeout bounds best-effort calls made after the outcome is decided.
const sideEffectTimeout = 500 * time.Millisecond

// Service wraps signup and signin business rules.
type Service struct {
	store     accounts.Store
	validator *accounts.Validator
	hasher    *Hasher
	guard     *Guard
	tokens    *TokenIssuer
	events    EventPublisher
	profiles  ProfileInvalidator
	logger    *slog.Logger
}

// NewService constructs a new Service.
func NewService(store accounts.Store, hasher *Hasher, guard *Guard, tokens *TokenIssuer) *Service {
	return &Service{
		store:     store,
		validator: accounts.NewValidator(),
		hasher:    hasher,
		guard:     guard,
		tokens:    tokens,
		logger:    slog.Default(),
	}
}

// WithEvents attaches an event publisher.
func (s *Service) WithEvents(events EventPublisher) *Service {
	s.events = events
	return s
}

// WithProfileCache attaches the cache evicted after login state changes.
func (s *Service) WithProfileCache(profiles ProfileInvalidator) *Service {
	s.profiles = profiles
	return s
}

// WithLogger replaces the service logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Tokens exposes the issuer used for bearer verification.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// Signup validates the request, hashes the password and stores the account.
func (s *Service) Signup(ctx context.Context, req accounts.SignupRequest) (*Session, error) {
	req, err := s.validator.Signup(req)
	if err != nil {
		return nil, err
	}
	dob, err := time.Parse(accounts.DateLayout, req.DateOfBirth)
	if err != nil {
		return nil, shared.NewValidationError("Date of birth must be a valid date (YYYY-MM-DD)")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, internal("signup", err)
	}

	account := &accounts.Account{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Phone:        req.Phone,
		Location:     req.Location,
		DateOfBirth:  dob,
		Gender:       accounts.Gender(req.Gender),
	}
	if err := s.store.Create(ctx, account); err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, internal("signup", err)
	}

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, internal("signup", err)
	}
	s.publish(ctx, "account created", account, s.publishCreated)
	return &Session{Token: token, Account: account}, nil
}

// Signin checks credentials against the stored account and the lockout
// window. Lock state is checked before the password.
func (s *Service) Signin(ctx context.Context, req SigninRequest) (*Session, error) {
	email := accounts.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, shared.NewValidationError("Email and password required")
	}

	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, &shared.CredentialsError{AttemptsLeft: -1}
		}
		return nil, internal("signin", err)
	}

	if err := s.guard.Check(account.Login); err != nil {
		return nil, err
	}

	if !s.hasher.Verify(req.Password, account.PasswordHash) {
		account.Login = s.guard.RecordFailure(account.Login)
		if err := s.store.UpdateLoginState(ctx, account.ID, account.Login); err != nil {
			return nil, internal("signin", err)
		}
		s.invalidate(ctx, account.ID)
		if s.guard.Locked(account.Login) {
			s.publish(ctx, "account locked", account, s.publishLocked)
		}
		return nil, &shared.CredentialsError{AttemptsLeft: s.guard.AttemptsLeft(account.Login)}
	}

	account.Login = s.guard.RecordSuccess(account.Login)
	if err := s.store.UpdateLoginState(ctx, account.ID, account.Login); err != nil {
		return nil, internal("signin", err)
	}
	s.invalidate(ctx, account.ID)

	token, err := s.tokens.Issue(account.ID, account.Email)
	if err != nil {
		return nil, internal("signin", err)
	}
	return &Session{Token: token, Account: account}, nil
}

func (s *Service) publishCreated(ctx context.Context, account accounts.Account) error {
	return s.events.AccountCreated(ctx, account)
}

func (s *Service) publishLocked(ctx context.Context, account accounts.Account) error {
	return s.events.AccountLocked(ctx, account)
}

func (s *Service) publish(ctx context.Context, what string, account *accounts.Account, fn func(context.Context, accounts.Account) error) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := fn(ctx, *account); err != nil {
		s.logger.Warn("publish "+what, slog.String("account_id", account.ID), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, accountID string) {
	if s.profiles == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
	defer cancel()
	if err := s.profiles.Invalidate(ctx, accountID); err != nil {
		s.logger.Warn("invalidate profile cache", slog.String("account_id", accountID), slog.Any("error", err))
	}
}

func internal(op string, err error) error {
	return fmt.Errorf("auth: %s: %w", op, errors.Join(shared.ErrInternal, err))
}
