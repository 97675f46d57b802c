package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/healthcompanion/companion/internal/accounts"
	"github.com/healthcompanion/companion/internal/app"
	"github.com/healthcompanion/companion/internal/auth"
	jobmetrics "github.com/healthcompanion/companion/internal/jobs"
	"github.com/healthcompanion/companion/internal/observability"
	"github.com/healthcompanion/companion/internal/platform/cache"
	"github.com/healthcompanion/companion/internal/platform/db"
	"github.com/healthcompanion/companion/internal/platform/migrate"
	"github.com/healthcompanion/companion/internal/users"
	"github.com/healthcompanion/companion/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, db.PoolConfig{
		DSN:            cfg.PGDSN,
		MaxConns:       cfg.PGMaxConns,
		MinConns:       cfg.PGMinConns,
		MaxConnIdle:    cfg.PGMaxConnIdle,
		ConnectTimeout: cfg.PGConnectTimeout,
	})
	if err != nil {
		return err
	}
	defer dbpool.Close()

	if cfg.PGAutoMigrate {
		if err := migrate.Up(ctx, dbpool); err != nil {
			return err
		}
		logger.Info("database migrated")
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, profile cache disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	store := accounts.NewRepository(dbpool)
	profileCache := users.NewProfileCache(redisClient, cfg.ProfileCacheTTL, logger)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	authService := auth.NewService(
		store,
		auth.NewHasher(cfg.BcryptCost),
		auth.NewGuard(cfg.LockoutMaxAttempts, cfg.LockoutDuration),
		tokens,
	).WithProfileCache(profileCache).WithLogger(logger)

	var jobHandler *jobs.Handler
	if cfg.EventsEnabled {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient := jobs.NewClient(redisOpts).WithMetrics(jobmetrics.NewMetrics(metrics.Registerer()))
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		authService.WithEvents(jobClient)

		inspector := asynq.NewInspector(redisOpts)
		defer inspector.Close()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  auth.NewHandler(logger, authService, auth.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow), metrics),
		UsersHandler: users.NewHandler(logger, users.NewService(store, profileCache, logger), auth.RequireBearer(tokens)),
		JobHandler:   jobHandler,
		DB:           dbpool,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
