package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/crypto/bcrypt"
)

const minProductionSecretBytes = 32

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":5000"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppAPIPrefix      string        `envconfig:"APP_API_PREFIX" default:"/api"`
	AppBodyLimit      int64         `envconfig:"APP_BODY_LIMIT" default:"10240"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`
	AppTrustProxy     bool          `envconfig:"APP_TRUST_PROXY" default:"false"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	PGDSN            string        `envconfig:"PG_DSN" default:"postgres://postgres@localhost:5432/health_companion?sslmode=disable"`
	PGMaxConns       int32         `envconfig:"PG_MAX_CONNS" default:"5"`
	PGMinConns       int32         `envconfig:"PG_MIN_CONNS" default:"0"`
	PGMaxConnIdle    time.Duration `envconfig:"PG_MAX_CONN_IDLE" default:"10s"`
	PGConnectTimeout time.Duration `envconfig:"PG_CONNECT_TIMEOUT" default:"30s"`
	PGAutoMigrate    bool          `envconfig:"PG_AUTO_MIGRATE" default:"true"`

	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	ProfileCacheTTL time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"5m"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`
	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"ai-health-companion"`

	BcryptCost int `envconfig:"BCRYPT_COST" default:"12"`

	LockoutMaxAttempts int           `envconfig:"LOCKOUT_MAX_ATTEMPTS" default:"5"`
	LockoutDuration    time.Duration `envconfig:"LOCKOUT_DURATION" default:"2h"`

	AuthRateLimit  int           `envconfig:"AUTH_RATE_LIMIT" default:"5"`
	AuthRateWindow time.Duration `envconfig:"AUTH_RATE_WINDOW" default:"15m"`

	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`

	MetricsEnabled    bool   `envconfig:"METRICS_ENABLED" default:"true"`
	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
	EventsEnabled     bool   `envconfig:"EVENTS_ENABLED" default:"true"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwt secret must be provided")
	}
	if c.IsProduction() && len(c.JWTSecret) < minProductionSecretBytes {
		return fmt.Errorf("jwt secret must be at least %d bytes in production", minProductionSecretBytes)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.LockoutMaxAttempts < 1 {
		return errors.New("lockout max attempts must be positive")
	}
	if c.LockoutDuration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.JWTTTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.AppAPIPrefix != "" && !strings.HasPrefix(c.AppAPIPrefix, "/") {
		return errors.New("api prefix must start with /")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
