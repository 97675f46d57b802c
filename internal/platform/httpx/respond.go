// Package httpx provides HTTP response utilities.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Message sends an error body with the given status and message.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Message: message, Status: status})
}

var (
	// ErrBadBody reports a request body that is not a single JSON value.
	ErrBadBody = errors.New("invalid request body")
	// ErrBodyTooLarge reports a body cut off by the request size limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrBadBody)
	}
	return nil
}
