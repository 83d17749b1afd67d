package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a response cache backed by Redis, for deployments where
// several workers share one cache. It fails open: any Redis error is
// treated as a miss so the pipeline proceeds uncached.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	counters
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	TTL         time.Duration
	CostPerCall float64
}

// NewRedis creates a Redis-backed response cache.
func NewRedis(cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "verdict"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	r := &Redis{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		logger: logger,
	}
	r.costPerCall = cfg.CostPerCall
	if r.costPerCall <= 0 {
		r.costPerCall = 0.01
	}
	return r, nil
}

func (r *Redis) wrapKey(key string) string {
	return r.prefix + ":resp:" + key
}

func (r *Redis) symbolSet(symbol string) string {
	return r.prefix + ":sym:" + symbol
}

// Get returns the cached value for key if present and fresh.
func (r *Redis) Get(ctx context.Context, key string) (any, bool) {
	data, err := r.client.Get(ctx, r.wrapKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis get failed, treating as miss", zap.Error(err))
		}
		r.miss()
		return nil, false
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		r.miss()
		return nil, false
	}
	r.hit()
	return value, true
}

// Set stores value under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, value any) {
	r.SetScoped(ctx, key, value, "")
}

// SetScoped stores value under key and tracks it in the symbol's key
// set so Invalidate can drop it.
func (r *Redis) SetScoped(ctx context.Context, key string, value any, symbol string) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("redis set: marshal failed", zap.Error(err))
		return
	}
	wrapped := r.wrapKey(key)
	if err := r.client.Set(ctx, wrapped, data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.Error(err))
		return
	}
	if symbol != "" {
		pipe := r.client.Pipeline()
		pipe.SAdd(ctx, r.symbolSet(symbol), wrapped)
		pipe.Expire(ctx, r.symbolSet(symbol), r.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("redis symbol index failed", zap.Error(err))
		}
	}
}

// Invalidate drops every entry scoped to symbol.
func (r *Redis) Invalidate(ctx context.Context, symbol string) {
	setKey := r.symbolSet(symbol)
	keys, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		r.logger.Warn("redis invalidate failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			r.logger.Warn("redis invalidate delete failed", zap.Error(err))
		}
	}
	r.client.Del(ctx, setKey)
}

// Stats returns current counters. Entry count is not tracked for the
// Redis backend.
func (r *Redis) Stats() Stats {
	return r.counters.stats(0)
}

// ResetStats clears counters; cached entries stay valid.
func (r *Redis) ResetStats() {
	r.counters.reset()
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
