package accounts

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/healthcompanion/companion/internal/shared"
)

const (
	minPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
)

// SignupRequest is the payload of a signup call.
type SignupRequest struct {
	Name        string `json:"name" validate:"min=2,max=50"`
	Email       string `json:"email" validate:"email,max=255"`
	Password    string `json:"password"`
	Phone       string `json:"phone" validate:"max=20"`
	Location    string `json:"location" validate:"max=100"`
	DateOfBirth string `json:"dateOfBirth" validate:"datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"oneof=male female other prefer-not-to-say"`
}

type profileRules struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=50"`
	Phone       *string `json:"phone" validate:"omitempty,max=20"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=male female other prefer-not-to-say"`
}

var fieldMessages = map[string]string{
	"name":        "Name must be between 2 and 50 characters",
	"email":       "Please provide a valid email address",
	"phone":       "Phone must be at most 20 characters",
	"location":    "Location must be at most 100 characters",
	"dateOfBirth": "Date of birth must be a valid date (YYYY-MM-DD)",
	"gender":      "Gender must be one of male, female, other, prefer-not-to-say",
}

// Validator applies account field rules.
type Validator struct {
	validate *validator.Validate
}

// NewValidator constructs a Validator reporting fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Signup trims and validates a signup request. The returned copy has its
// email normalised.
func (v *Validator) Signup(req SignupRequest) (SignupRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Location = strings.TrimSpace(req.Location)
	req.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	req.Gender = strings.TrimSpace(req.Gender)

	for _, field := range []string{req.Name, req.Email, req.Password, req.Phone, req.Location, req.DateOfBirth, req.Gender} {
		if field == "" {
			return req, shared.NewValidationError("All fields are required")
		}
	}
	if err := CheckPassword(req.Password); err != nil {
		return req, err
	}
	if err := v.validate.Struct(req); err != nil {
		return req, v.translate(err)
	}
	return req, nil
}

// ProfileUpdate trims the provided fields, drops the blank ones and validates
// the rest.
func (v *Validator) ProfileUpdate(update ProfileUpdate) (ProfileUpdate, error) {
	update.Name = trimOptional(update.Name)
	update.Phone = trimOptional(update.Phone)
	update.Location = trimOptional(update.Location)
	update.DateOfBirth = trimOptional(update.DateOfBirth)
	update.Gender = trimOptional(update.Gender)

	rules := profileRules(update)
	if err := v.validate.Struct(rules); err != nil {
		return update, v.translate(err)
	}
	return update, nil
}

// CheckPassword enforces the password policy: at least eight characters with
// an uppercase letter, a lowercase letter and a digit.
func CheckPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return shared.NewValidationError("Password must be at least 8 characters")
	}
	if len(password) > maxPasswordBytes {
		return shared.NewValidationError("Password must be at most 72 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return shared.NewValidationError("Password must contain uppercase, lowercase, and numbers")
	}
	return nil
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.Phone == nil && u.Location == nil && u.DateOfBirth == nil && u.Gender == nil
}

func (v *Validator) translate(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.NewValidationError(err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	seen := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := fieldMessages[field]
		if !ok {
			msg = fe.Error()
		}
		messages = append(messages, msg)
	}
	return shared.NewValidationError(messages...)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
