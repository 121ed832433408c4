package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heelo-app/heelo-server/internal/config"
)

// UnreadCountTTL bounds how long a cached unread-notification count is
// trusted before the DB is consulted again.
const UnreadCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes a Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// KeyForUnreadCount generates the Redis key for a profile's unread
// notification count.
func (c *RedisCache) KeyForUnreadCount(profileID string) string {
	return fmt.Sprintf("notifications:unread:%s", profileID)
}

// UpdateUnreadCount stores a fresh count, refreshing the TTL.
func (c *RedisCache) UpdateUnreadCount(ctx context.Context, profileID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadCount(profileID), count, UnreadCountTTL).Err()
}

// GetUnreadCount returns the cached count; a cache miss reports found=false.
func (c *RedisCache) GetUnreadCount(ctx context.Context, profileID string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForUnreadCount(profileID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForUnreadCount(profileID), UnreadCountTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return n, true, nil
}
