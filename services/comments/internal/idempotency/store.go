// Package idempotency remembers request keys and command ids for a TTL so a
// retried create, or a redelivered command, is applied at most once.
//
// Backends, best first: Redis SET NX with TTL, Postgres INSERT ... ON CONFLICT,
// and an in-memory map for development.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Store records keys.
type Store interface {
	// Check returns true if key was already seen within the TTL.
	// If not seen, it atomically marks it.
	Check(ctx context.Context, key string) (duplicate bool, err error)
	// Release forgets key so a failed attempt can be retried.
	Release(ctx context.Context, key string) error
}

// NewStore picks the best available backend: Redis > Postgres > in-memory.
// When isProd is true the in-memory fallback is refused.
func NewStore(rdb *redis.Client, pool *pgxpool.Pool, ttl time.Duration, isProd bool) (Store, error) {
	if rdb != nil {
		return NewRedisStore(rdb, ttl), nil
	}
	if pool != nil {
		return NewPostgresStore(pool, ttl), nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_URL or DATABASE_URL for idempotency; in-memory store is not allowed")
	}
	return NewMemoryStore(ttl), nil
}

// Scoped namespaces keys, e.g. per caller, on top of another Store.
func Scoped(s Store, prefix string) Store {
	return scoped{next: s, prefix: prefix}
}

type scoped struct {
	next   Store
	prefix string
}

func (s scoped) Check(ctx context.Context, key string) (bool, error) {
	return s.next.Check(ctx, s.prefix+key)
}

func (s scoped) Release(ctx context.Context, key string) error {
	return s.next.Release(ctx, s.prefix+key)
}
