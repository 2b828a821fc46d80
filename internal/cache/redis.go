package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cleanup"
)

// RedisConfig holds Redis connection settings. URL wins over the
// host/port/password triple when both are set.
type RedisConfig struct {
	URL      string // e.g., "rediss://default:<password>@<host>:6379"
	Host     string
	Port     int
	Password string
	DB       int
}

var errRedisNotConfigured = errors.New("redis: neither URL nor host is configured")

// RedisStore deletes project entries from Redis.
type RedisStore struct {
	client *redis.Client
	// initErr is returned on every call when the config could not be used.
	initErr error
}

// NewRedisStore never fails: configuration problems surface on first use.
// No connection is opened until the first command.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	opts, err := cfg.options()
	if err != nil {
		return &RedisStore{initErr: err}
	}
	return &RedisStore{client: redis.NewClient(opts)}
}

func (c RedisConfig) options() (*redis.Options, error) {
	if c.URL != "" {
		opts, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	if c.Host == "" {
		return nil, errRedisNotConfigured
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// DeleteKey implements cleanup.CacheStore.
func (s *RedisStore) DeleteKey(ctx context.Context, key string) cleanup.Result {
	if s.initErr != nil {
		return cleanup.FailedResult(s.initErr)
	}

	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return cleanup.FailedResult(fmt.Errorf("redis del %q: %w", key, err))
	}
	if n == 0 {
		return cleanup.NotFoundResult()
	}
	return cleanup.DeletedResult()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
