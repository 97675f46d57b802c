package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/platform/httpx"
	"github.com/healthcompanion/companion/internal/shared"
)

// OutcomeRecorder counts authentication outcomes.
type OutcomeRecorder interface {
	RecordAuth(operation, outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger  *slog.Logger
	service *Service
	limiter func(http.Handler) http.Handler
	metrics OutcomeRecorder
}

// NewHandler constructs a Handler instance. limiter, when non-nil, guards
// both signup and signin.
func NewHandler(logger *slog.Logger, service *Service, limiter func(http.Handler) http.Handler, metrics OutcomeRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, limiter: limiter, metrics: metrics}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter)
		}
		r.Post("/signup", h.handleSignup)
		r.Post("/signin", h.handleSignin)
	})
}

type sessionResponse struct {
	Message string        `json:"message"`
	Token   string        `json:"token"`
	User    accounts.User `json:"user"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "signup", err)
		return
	}
	session, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}
	h.record("signup", "success")
	httpx.JSON(w, http.StatusCreated, sessionResponse{
		Message: "Account created successfully",
		Token:   session.Token,
		User:    session.Account.PublicUser(),
	})
}

func (h *Handler) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "signin", err)
		return
	}
	session, err := h.service.Signin(r.Context(), req)
	if err != nil {
		h.fail(w, r, "signin", err)
		return
	}
	h.record("signin", "success")
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		Token:   session.Token,
		User:    session.Account.PublicUser(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	outcome := outcomeFor(err)
	h.record(operation, outcome)
	if outcome == "error" {
		h.logger.Error(operation+" failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(operation, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordAuth(operation, outcome)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, shared.ErrAccountLocked):
		return "locked"
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, shared.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, shared.ErrValidation), errors.Is(err, httpx.ErrBadBody):
		return "invalid_request"
	default:
		return "error"
	}
}
