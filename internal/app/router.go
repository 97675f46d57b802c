package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/healthcompanion/companion/internal/auth"
	"github.com/healthcompanion/companion/internal/observability"
	"github.com/healthcompanion/companion/internal/platform/httpx"
	"github.com/healthcompanion/companion/internal/users"
	"github.com/healthcompanion/companion/jobs"
)

// Pinger reports database reachability; satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	JobHandler   *jobs.Handler
	DB           Pinger
	Metrics      *observability.Metrics
	Now          func() time.Time
}

type healthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	prefix := "/api"
	if params.Config != nil && params.Config.AppAPIPrefix != "" {
		prefix = params.Config.AppAPIPrefix
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	r.Route(prefix, func(r chi.Router) {
		r.Get("/health", healthHandler(params.DB, params.Logger, now))
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/user", params.UsersHandler.MountRoutes)
		}
	})

	// Operational endpoints live at the root, outside the public API prefix.
	if params.Config == nil || params.Config.MetricsEnabled {
		if params.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
		}
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Message(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

func healthHandler(db Pinger, logger *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    "OK",
			Message:   "Server is running",
			Database:  "PostgreSQL",
			Timestamp: now().UTC(),
		}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				if logger != nil {
					logger.Warn("health database ping", slog.Any("error", err))
				}
				resp.Status = "ERROR"
				resp.Message = "Database unavailable"
				httpx.JSON(w, http.StatusServiceUnavailable, resp)
				return
			}
		}
		httpx.JSON(w, http.StatusOK, resp)
	}
}
