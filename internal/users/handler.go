package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/platform/httpx"
	"github.com/healthcompanion/companion/internal/shared"
)

// Handler exposes the profile endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authn   func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. authn must place a shared.Identity in
// the request context.
func NewHandler(logger *slog.Logger, service *Service, authn func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, authn: authn}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authn)
		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.updateProfile)
	})
}

type profileResponse struct {
	User accounts.Profile `json:"user"`
}

type updateResponse struct {
	Message string        `json:"message"`
	User    accounts.User `json:"user"`
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenMissing)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), identity.AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profileResponse{User: profile})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrTokenMissing)
		return
	}
	var update accounts.ProfileUpdate
	if err := httpx.DecodeJSON(r, &update); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), identity.AccountID, update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updateResponse{Message: "Profile updated successfully", User: user})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("profile request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
