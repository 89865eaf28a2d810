package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/funlynk/funlynk-backend/internal/logger"
)

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedis connects to REDIS_ADDR and returns the redis-backed Cache.
func NewRedis(log *logger.Logger) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisCache{
		log: log.With("service", "RedisCache"),
		rdb: rdb,
	}, nil
}

// NewRedisWithClient wraps an existing client; used by tests.
func NewRedisWithClient(log *logger.Logger, rdb *goredis.Client) Cache {
	return &redisCache{log: log.With("service", "RedisCache"), rdb: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A stale or mis-typed payload behaves like a miss.
		c.log.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		_ = c.rdb.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("empty invalidation prefix")
	}
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (c *redisCache) Close() error {
	return c.rdb.Close()
}
