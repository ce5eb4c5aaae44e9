package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "comments:idempotent:"

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL, falling back to treating dsn as a
// bare host:port.
func NewRedisClient(dsn string) *redis.Client {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		opts = &redis.Options{Addr: dsn}
	}
	return redis.NewClient(opts)
}

func (s *RedisStore) Check(ctx context.Context, key string) (bool, error) {
	set, err := s.client.SetNX(ctx, redisPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	// SetNX returns true if the key was SET (i.e. NOT a duplicate).
	return !set, nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisPrefix+key).Err()
}
