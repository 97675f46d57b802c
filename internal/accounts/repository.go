package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthcompanion/companion/internal/shared"
)

const uniqueViolation = "23505"

// Store defines persistence operations for accounts.
type Store interface {
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	UpdateLoginState(ctx context.Context, id string, state LoginState) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Account, error)
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Store using PostgreSQL.
type PGRepository struct {
	db DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db DBTX) *PGRepository {
	return &PGRepository{db: db}
}

// Create inserts account, assigning an id when missing. The password hash
// must already be computed.
func (r *PGRepository) Create(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Email = NormalizeEmail(account.Email)
	err := r.db.QueryRow(ctx, insertAccount,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Phone,
		account.Location,
		account.DateOfBirth,
		string(account.Gender),
	).Scan(&account.Login.Attempts, &account.Login.LockUntil, &account.Login.LastLogin, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicateEmail
		}
		return fmt.Errorf("accounts: create: %w", err)
	}
	return nil
}

// FindByEmail fetches an account by trimmed, case-insensitive email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := scanAccount(r.db.QueryRow(ctx, selectAccountByEmail, NormalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("accounts: find by email: %w", err)
	}
	return account, nil
}

// FindByID fetches an account by id. Malformed ids are reported as not found.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	account, err := scanAccount(r.db.QueryRow(ctx, selectAccountByID, parsed))
	if err != nil {
		return nil, fmt.Errorf("accounts: find by id: %w", err)
	}
	return account, nil
}

// UpdateLoginState persists the lockout bookkeeping for an account.
func (r *PGRepository) UpdateLoginState(ctx context.Context, id string, state LoginState) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return shared.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, updateLoginState, parsed, state.Attempts, utcPtr(state.LockUntil), utcPtr(state.LastLogin))
	if err != nil {
		return fmt.Errorf("accounts: update login state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil fields of update and returns the stored
// result.
func (r *PGRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*Account, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	var dob *time.Time
	if update.DateOfBirth != nil {
		t, err := time.Parse(DateLayout, *update.DateOfBirth)
		if err != nil {
			return nil, shared.NewValidationError("Date of birth must be a valid date (YYYY-MM-DD)")
		}
		dob = &t
	}
	account, err := scanAccount(r.db.QueryRow(ctx, updateProfile,
		parsed,
		update.Name,
		update.Phone,
		update.Location,
		dob,
		update.Gender,
	))
	if err != nil {
		return nil, fmt.Errorf("accounts: update profile: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		account Account
		gender  string
	)
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Phone,
		&account.Location,
		&account.DateOfBirth,
		&gender,
		&account.Login.Attempts,
		&account.Login.LockUntil,
		&account.Login.LastLogin,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	account.Gender = Gender(gender)
	return &account, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

var _ Store = (*PGRepository)(nil)
