package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcompanion/companion/internal/shared"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	row      fakeRow
	execTag  pgconn.CommandTag
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.execTag, f.execErr
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func errRow(err error) fakeRow {
	return fakeRow{scan: func(...any) error { return err }}
}

func TestCreateMapsUniqueViolationToDuplicateEmail(t *testing.T) {
	db := &fakeDB{row: errRow(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_lower_key"})}
	repo := NewRepository(db)

	err := repo.Create(context.Background(), &Account{Name: "Ada", Email: "ADA@example.com", Gender: GenderFemale})
	require.ErrorIs(t, err, shared.ErrDuplicateEmail)
	assert.Equal(t, "ada@example.com", db.lastArgs[2])
	assert.NotEmpty(t, db.lastArgs[0], "id assigned before insert")
}

func TestCreateWrapsOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewRepository(&fakeDB{row: errRow(boom)})

	err := repo.Create(context.Background(), &Account{Name: "Ada", Email: "ada@example.com"})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shared.ErrDuplicateEmail)
}

func TestFindByEmailNoRows(t *testing.T) {
	db := &fakeDB{row: errRow(pgx.ErrNoRows)}
	_, err := NewRepository(db).FindByEmail(context.Background(), "  Someone@Example.com ")
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, "someone@example.com", db.lastArgs[0])
}

func TestFindByIDRejectsMalformedID(t *testing.T) {
	_, err := NewRepository(&fakeDB{}).FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindByIDScansAccount(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	dob := time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC)
	row := fakeRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
		*dest[1].(*string) = "Ada"
		*dest[2].(*string) = "ada@example.com"
		*dest[3].(*string) = "$2a$12$hash"
		*dest[4].(*string) = "123"
		*dest[5].(*string) = "London"
		*dest[6].(*time.Time) = dob
		*dest[7].(*string) = "female"
		*dest[8].(*int) = 2
		*dest[11].(*time.Time) = created
		*dest[12].(*time.Time) = created
		return nil
	}}

	account, err := NewRepository(&fakeDB{row: row}).FindByID(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, account.Gender)
	assert.Equal(t, 2, account.Login.Attempts)
	assert.Nil(t, account.Login.LockUntil)
	assert.Equal(t, "1990-12-10", account.PublicUser().DateOfBirth)
}

func TestUpdateLoginStateNotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	err := NewRepository(db).UpdateLoginState(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427", LoginState{Attempts: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateLoginStateStoresUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	lock := time.Date(2024, 1, 1, 12, 0, 0, 0, loc)
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}

	err := NewRepository(db).UpdateLoginState(context.Background(), "1b4e28ba-2fa1-11d2-883f-0016d3cca427", LoginState{Attempts: 5, LockUntil: &lock})
	require.NoError(t, err)
	assert.Equal(t, 5, db.lastArgs[1])
	stored := db.lastArgs[2].(*time.Time)
	assert.Equal(t, time.UTC, stored.Location())
	assert.True(t, stored.Equal(lock))
	assert.Nil(t, db.lastArgs[3].(*time.Time))
}

func TestProfileJSONOmitsPasswordHash(t *testing.T) {
	account := Account{ID: "id-1", Name: "Ada", Email: "ada@example.com", PasswordHash: "$2a$12$secret", Gender: GenderFemale}

	raw, err := json.Marshal(account.Profile())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")
	assert.Contains(t, string(raw), `"loginAttempts":0`)
}
