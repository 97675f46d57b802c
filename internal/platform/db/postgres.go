package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig bounds the shared connection pool.
type PoolConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	MaxConnIdle    time.Duration
	ConnectTimeout time.Duration
}

// New creates a new PostgreSQL connection pool.
func New(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	applyPoolConfig(config, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

func applyPoolConfig(config *pgxpool.Config, cfg PoolConfig) {
	if cfg.MaxConns > 0 {
		config.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 && cfg.MinConns <= config.MaxConns {
		config.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdle > 0 {
		config.MaxConnIdleTime = cfg.MaxConnIdle
	}
	if cfg.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
}
