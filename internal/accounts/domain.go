// Package accounts is the credential store: account records, their
// validation rules and PostgreSQL persistence.
package accounts

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of a date of birth.
const DateLayout = "2006-01-02"

// Gender enumerates accepted gender values.
type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer-not-to-say"
)

// Valid reports whether g is one of the enumerated values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return true
	}
	return false
}

// LoginState is the lockout bookkeeping persisted with each account.
type LoginState struct {
	Attempts  int
	LockUntil *time.Time
	LastLogin *time.Time
}

// Account is a stored user record.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Location     string
	DateOfBirth  time.Time
	Gender       Gender
	Login        LoginState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	DateOfBirth *string `json:"dateOfBirth"`
	Gender      *string `json:"gender"`
}

// NormalizeEmail trims and lower-cases an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User is the public JSON view of an account returned by signup, signin and
// profile updates.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Location    string    `json:"location"`
	DateOfBirth string    `json:"dateOfBirth"`
	Gender      Gender    `json:"gender"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Profile is the full JSON view of an account without its password hash.
type Profile struct {
	User
	LoginAttempts int        `json:"loginAttempts"`
	LockUntil     *time.Time `json:"lockUntil"`
	LastLogin     *time.Time `json:"lastLogin"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PublicUser returns the public view of a.
func (a *Account) PublicUser() User {
	return User{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		Location:    a.Location,
		DateOfBirth: a.DateOfBirth.Format(DateLayout),
		Gender:      a.Gender,
		CreatedAt:   a.CreatedAt,
	}
}

// Profile returns the profile view of a.
func (a *Account) Profile() Profile {
	return Profile{
		User:          a.PublicUser(),
		LoginAttempts: a.Login.Attempts,
		LockUntil:     a.Login.LockUntil,
		LastLogin:     a.Login.LastLogin,
		UpdatedAt:     a.UpdatedAt,
	}
}
