package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/healthcompanion/companion/internal/observability"
	"github.com/healthcompanion/companion/internal/platform/httpx"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the API middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	conf := cfg.Config
	if conf == nil {
		conf = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		SSLRedirect:           conf.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !conf.IsProduction(),
	})

	timeout := 30 * time.Second
	if conf.AppRequestTimeout > 0 {
		timeout = conf.AppRequestTimeout
	}
	bodyLimit := int64(10 << 10)
	if conf.AppBodyLimit > 0 {
		bodyLimit = conf.AppBodyLimit
	}
	rateLimit := 120
	if conf.AppRateLimit > 0 {
		rateLimit = conf.AppRateLimit
	}

	var origins []string
	if conf.FrontendURL != "" {
		origins = []string{conf.FrontendURL}
	}

	var middlewares []func(http.Handler) http.Handler
	// Forwarded headers are client controlled unless a proxy overwrites them.
	if conf.AppTrustProxy {
		middlewares = append(middlewares, middleware.RealIP)
	}
	middlewares = append(middlewares,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					httpx.Message(w, http.StatusBadRequest, "Request blocked")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.RequestSize(bodyLimit),
		middleware.Compress(5),
		httprate.Limit(rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Message(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			}),
		),
	)
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}
