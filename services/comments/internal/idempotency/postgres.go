package idempotency

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps keys in idempotency_keys. An expired key is reclaimed
// by the same statement that would insert it.
type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

func (s *PostgresStore) Check(ctx context.Context, key string) (bool, error) {
	const q = `INSERT INTO idempotency_keys (key, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (key) DO UPDATE SET created_at = now()
	           WHERE idempotency_keys.created_at < now() - make_interval(secs => $2)`

	tag, err := s.pool.Exec(ctx, q, key, s.ttl.Seconds())
	if err != nil {
		return false, err
	}
	// RowsAffected == 0 means a live row already existed (duplicate).
	return tag.RowsAffected() == 0, nil
}

func (s *PostgresStore) Release(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}
