package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("storage unavailable")

// BreakerSettings configures BreakerRepository.
type BreakerSettings struct {
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Logger           *zap.Logger
}

// BreakerRepository fails fast once the wrapped Repository keeps failing.
// It never retries; domain outcomes and cancellations do not count as failures.
type BreakerRepository struct {
	next Repository
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerRepository(next Repository, cfg BreakerSettings) *BreakerRepository {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "comments-db",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: isStorageHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit-breaker state change", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &BreakerRepository{next: next, cb: cb}
}

// State reports the breaker state, for readiness checks and tests.
func (b *BreakerRepository) State() gobreaker.State { return b.cb.State() }

func isStorageHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidCursor) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func guard[T any](b *BreakerRepository, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		// Execute hands back fn's value alongside its error.
		if t, ok := v.(T); ok {
			return t, err
		}
		return zero, err
	}
	return v.(T), nil
}

func (b *BreakerRepository) Insert(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	return guard(b, func() (domain.Comment, error) { return b.next.Insert(ctx, in) })
}

func (b *BreakerRepository) Get(ctx context.Context, id int64) (domain.Comment, error) {
	return guard(b, func() (domain.Comment, error) { return b.next.Get(ctx, id) })
}

func (b *BreakerRepository) MarkDeleted(ctx context.Context, id, authorID int64, at time.Time) (bool, error) {
	return guard(b, func() (bool, error) { return b.next.MarkDeleted(ctx, id, authorID, at) })
}

type clearResult struct {
	c  domain.Comment
	ok bool
}

func (b *BreakerRepository) ClearDeleted(ctx context.Context, id, authorID int64, cutoff, at time.Time) (domain.Comment, bool, error) {
	r, err := guard(b, func() (clearResult, error) {
		c, ok, err := b.next.ClearDeleted(ctx, id, authorID, cutoff, at)
		return clearResult{c: c, ok: ok}, err
	})
	return r.c, r.ok, err
}

func (b *BreakerRepository) ListTopLevel(ctx context.Context) ([]domain.Comment, error) {
	return guard(b, func() ([]domain.Comment, error) { return b.next.ListTopLevel(ctx) })
}

func (b *BreakerRepository) ListReplies(ctx context.Context, parentID int64, afterID *int64, limit int) ([]domain.Comment, error) {
	return guard(b, func() ([]domain.Comment, error) { return b.next.ListReplies(ctx, parentID, afterID, limit) })
}

func (b *BreakerRepository) ListDeletedByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error) {
	return guard(b, func() ([]domain.Comment, error) { return b.next.ListDeletedByAuthor(ctx, authorID) })
}

func (b *BreakerRepository) Subtree(ctx context.Context, rootID int64, maxDepth int) ([]thread.Row, error) {
	return guard(b, func() ([]thread.Row, error) { return b.next.Subtree(ctx, rootID, maxDepth) })
}

// Ping bypasses the breaker so readiness reflects the real connection.
func (b *BreakerRepository) Ping(ctx context.Context) error { return b.next.Ping(ctx) }
