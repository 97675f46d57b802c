// Package users serves the authenticated profile of the calling account.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/shared"
)

// ProfileStore is the subset of the credential store used for profiles.
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*accounts.Account, error)
	UpdateProfile(ctx context.Context, id string, update accounts.ProfileUpdate) (*accounts.Account, error)
}

// Service handles profile reads and edits.
type Service struct {
	store     ProfileStore
	cache     *ProfileCache
	validator *accounts.Validator
	logger    *slog.Logger
}

// NewService builds Service instance. cache may be nil.
func NewService(store ProfileStore, cache *ProfileCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, validator: accounts.NewValidator(), logger: logger}
}

// GetProfile returns the profile view of an account.
func (s *Service) GetProfile(ctx context.Context, accountID string) (accounts.Profile, error) {
	var profile accounts.Profile
	err := s.cache.FetchJSON(ctx, Key(accountID), &profile, func(ctx context.Context) (any, error) {
		account, err := s.store.FindByID(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return account.Profile(), nil
	})
	if err != nil {
		return accounts.Profile{}, classify("get profile", err)
	}
	return profile, nil
}

// UpdateProfile applies the provided fields and evicts the cached view. An
// update without any usable field returns the stored account unchanged.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, update accounts.ProfileUpdate) (accounts.User, error) {
	update, err := s.validator.ProfileUpdate(update)
	if err != nil {
		return accounts.User{}, err
	}

	var account *accounts.Account
	if update.IsEmpty() {
		account, err = s.store.FindByID(ctx, accountID)
	} else {
		account, err = s.store.UpdateProfile(ctx, accountID, update)
	}
	if err != nil {
		return accounts.User{}, classify("update profile", err)
	}

	evictCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := s.cache.Invalidate(evictCtx, accountID); err != nil {
		s.logger.Warn("invalidate profile cache", slog.String("account_id", accountID), slog.Any("error", err))
	}
	return account.PublicUser(), nil
}

func classify(op string, err error) error {
	if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
		return err
	}
	return fmt.Errorf("users: %s: %w", op, errors.Join(shared.ErrInternal, err))
}
