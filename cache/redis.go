package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"golang.org/x/sync/singleflight"
)

// RedisConfig holds the configuration for a Redis-backed region.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache is a cache region backed by Redis.
//
// Values are stored as JSON under "cacheops:<region>:<key>", so cached
// values must survive a JSON round trip; decoded values use the generic
// JSON representation (map[string]any, []any, float64, string, bool,
// nil). Storage failures on Put/Evict/Clear are logged, not returned:
// the region degrades to a miss rather than failing the caller.
type RedisCache struct {
	name        string
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration

	sfGroup singleflight.Group
}

// NewRedisCache creates and connects a Redis-backed region. It pings
// the server to ensure connectivity before returning.
func NewRedisCache(ctx context.Context, name string, cfg *RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: failed to connect to redis: %w", err)
	}

	return &RedisCache{
		name:        name,
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisCache").Str("region", name).Logger(),
		ttl:         cfg.TTL,
	}, nil
}

// Name returns the region name.
func (c *RedisCache) Name() string {
	return c.name
}

// Get retrieves a value. A redis.Nil reply is a normal miss; any other
// error is logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key any) (ValueWrapper, bool) {
	data, err := c.redisClient.Get(ctx, c.redisKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Unexpected Redis error during get.")
		}
		return ValueWrapper{}, false
	}

	var value any
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to unmarshal cached data.")
		return ValueWrapper{}, false
	}
	return WrapValue(value), true
}

// GetOrLoad returns the mapped value, running loader on a miss.
// Concurrent loads for the same key collapse into one loader execution
// within this process; distinct processes may still race.
func (c *RedisCache) GetOrLoad(ctx context.Context, key any, loader Loader) (any, error) {
	if w, ok := c.Get(ctx, key); ok {
		return w.Get(), nil
	}

	v, err, _ := c.sfGroup.Do(stringKey(key), func() (any, error) {
		if w, ok := c.Get(ctx, key); ok {
			return w.Get(), nil
		}
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(ctx, key, value)
		return value, nil
	})
	if err != nil {
		return nil, NewValueRetrievalError(key, err)
	}
	return v, nil
}

// Put stores a value with the configured TTL.
func (c *RedisCache) Put(ctx context.Context, key any, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to marshal data for caching.")
		return
	}
	if err := c.redisClient.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to set data in Redis cache.")
	}
}

// PutIfAbsent stores a value only if no mapping exists, using SET NX.
func (c *RedisCache) PutIfAbsent(ctx context.Context, key any, value any) (ValueWrapper, bool) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to marshal data for caching.")
		return ValueWrapper{}, false
	}

	set, err := c.redisClient.SetNX(ctx, c.redisKey(key), data, c.ttl).Result()
	if err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to set data in Redis cache.")
		return ValueWrapper{}, false
	}
	if set {
		return ValueWrapper{}, false
	}
	// Lost the race or the mapping already existed; report the holder.
	if w, ok := c.Get(ctx, key); ok {
		return w, true
	}
	return ValueWrapper{}, false
}

// Evict removes a mapping. Idempotent.
func (c *RedisCache) Evict(ctx context.Context, key any) {
	if err := c.redisClient.Del(ctx, c.redisKey(key)).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey(key)).Msg("Failed to delete key from Redis cache.")
	}
}

// Clear removes every mapping in the region by scanning its key prefix.
func (c *RedisCache) Clear(ctx context.Context) {
	pattern := c.keyPrefix() + "*"
	iter := c.redisClient.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Error().Err(err).Str("key", iter.Val()).Msg("Failed to delete key during clear.")
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to scan keys during clear.")
	}
}

// Close closes the underlying Redis client connection.
func (c *RedisCache) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

func (c *RedisCache) keyPrefix() string {
	return "cacheops:" + c.name + ":"
}

func (c *RedisCache) redisKey(key any) string {
	return c.keyPrefix() + stringKey(key)
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
