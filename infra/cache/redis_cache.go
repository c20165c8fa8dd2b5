package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/presale/pkg/cache"
	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/progress"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCache implements cache.ProgressCache using Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisCache connects to the configured Redis instance.
func NewRedisCache(cfg *config.Redis, logger *slog.Logger) (*RedisCache, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("redis cache: url is required")
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: connection failed: %w", err)
	}
	return NewRedisCacheWithClient(client, cfg.KeyPrefix, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger.With("cache", "redis")}
}

func (r *RedisCache) key(roundID uuid.UUID) string {
	return r.prefix + "progress:" + roundID.String()
}

func (r *RedisCache) Get(ctx context.Context, roundID uuid.UUID) (*progress.Summary, error) {
	val, err := r.client.Get(ctx, r.key(roundID)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "round_id", roundID)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "round_id", roundID, "error", err)
		return nil, err
	}
	var s progress.Summary
	if err := json.Unmarshal(val, &s); err != nil {
		r.logger.Error("Redis cache unmarshal error", "round_id", roundID, "error", err)
		return nil, err
	}
	r.logger.Debug("Redis cache hit", "round_id", roundID, "percent", s.Percent)
	return &s, nil
}

func (r *RedisCache) Set(ctx context.Context, roundID uuid.UUID, summary *progress.Summary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(roundID), data, ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "round_id", roundID, "error", err)
		return err
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, roundID uuid.UUID) error {
	if err := r.client.Del(ctx, r.key(roundID)).Err(); err != nil {
		r.logger.Error("Redis cache delete error", "round_id", roundID, "error", err)
		return err
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

var _ cache.ProgressCache = (*RedisCache)(nil)
