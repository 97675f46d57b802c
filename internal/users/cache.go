package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "profile:"

// DefaultCacheTTL bounds how long a cached profile view is served.
const DefaultCacheTTL = 5 * time.Minute

// ProfileCache stores JSON profile views in Redis. A nil cache, or one
// without a client, always falls through to the loader.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProfileCache instantiates the cache helper.
func NewProfileCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileCache{client: client, ttl: ttl, logger: logger}
}

// Key returns the cache key of an account profile.
func Key(accountID string) string {
	return keyPrefix + accountID
}

// FetchJSON loads a cached value or populates it using the loader. Redis
// failures are logged and served from the loader.
func (c *ProfileCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("users: cache loader required")
	}
	if c == nil || c.client == nil {
		return load(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if err := json.Unmarshal(payload, dest); err == nil {
			return nil
		}
		c.logger.Warn("drop undecodable cached profile", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("profile cache read", slog.String("key", key), slog.Any("error", err))
		return load(ctx, dest, loader)
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("users: encode profile: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write", slog.String("key", key), slog.Any("error", err))
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate drops the cached profile of an account.
func (c *ProfileCache) Invalidate(ctx context.Context, accountID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, Key(accountID)).Err(); err != nil {
		return fmt.Errorf("users: invalidate profile: %w", err)
	}
	return nil
}

func load(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("users: encode profile: %w", err)
	}
	return json.Unmarshal(raw, dest)
}
