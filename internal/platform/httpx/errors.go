package httpx

import (
	"errors"
	"net/http"

	"github.com/healthcompanion/companion/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInternal):
		return http.StatusInternalServerError
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrBadBody):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDuplicateEmail):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, shared.ErrTokenMissing):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrTokenInvalid):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to JSON error responses. Internal errors
// never leak their detail to the caller.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch {
	case status == http.StatusInternalServerError:
		Message(w, status, "Server error. Please try again.")
	case errors.Is(err, ErrBodyTooLarge):
		Message(w, status, "Request body too large")
	case errors.Is(err, ErrBadBody):
		Message(w, status, "Invalid request body")
	case errors.Is(err, shared.ErrDuplicateEmail):
		Message(w, status, "Email already exists")
	case errors.Is(err, shared.ErrTokenMissing):
		Message(w, status, "Access token required")
	case errors.Is(err, shared.ErrTokenInvalid):
		Message(w, status, "Invalid or expired token")
	case errors.Is(err, shared.ErrNotFound):
		Message(w, status, "User not found")
	default:
		Message(w, status, userMessage(err))
	}
}

func userMessage(err error) string {
	var validation *shared.ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}
	var creds *shared.CredentialsError
	if errors.As(err, &creds) {
		return creds.Error()
	}
	var locked *shared.LockedError
	if errors.As(err, &locked) {
		return locked.Error()
	}
	if errors.Is(err, shared.ErrInvalidCredentials) {
		return "Invalid email or password"
	}
	return err.Error()
}
