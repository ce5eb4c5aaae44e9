// Package store persists comments and serves the threaded views over them.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/comment-platform/services/comments/internal/cursor"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/metrics"
	"github.com/example/comment-platform/services/comments/internal/moderation"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

const (
	DefaultReplyLimit  = 20
	MaxReplyLimit      = 100
	DefaultThreadDepth = 20
	MaxThreadDepth     = 50
	ThreadTimeout      = 5 * time.Second
)

const (
	MsgDeleted        = "comment deleted"
	MsgAlreadyDeleted = "comment already deleted"
)

// DeleteResult is the success outcome of Delete.
type DeleteResult struct {
	Message        string `json:"message"`
	AlreadyDeleted bool   `json:"already_deleted"`
}

// ReplyPage is one page of direct replies. NextCursor is nil at end of data.
type ReplyPage struct {
	Data       []domain.Comment `json:"data"`
	NextCursor *string          `json:"next_cursor"`
}

// CommentStore applies the moderation policy and pagination rules on top of
// a Repository. It keeps no state between calls.
type CommentStore struct {
	repo    Repository
	now     func() time.Time
	metrics *metrics.Comments

	defaultLimit  int
	maxLimit      int
	defaultDepth  int
	maxDepth      int
	threadTimeout time.Duration
}

type Option func(*CommentStore)

// WithClock overrides the time source used for deletion and the restore window.
func WithClock(now func() time.Time) Option {
	return func(s *CommentStore) { s.now = now }
}

// WithReplyLimits sets the default and maximum page size of ListReplies.
func WithReplyLimits(def, ceiling int) Option {
	return func(s *CommentStore) {
		if def > 0 {
			s.defaultLimit = def
		}
		if ceiling > 0 {
			s.maxLimit = ceiling
		}
	}
}

// WithThreadLimits sets the default depth, the hard depth ceiling and the
// deadline of a GetThread traversal.
func WithThreadLimits(def, ceiling int, timeout time.Duration) Option {
	return func(s *CommentStore) {
		if def >= 0 {
			s.defaultDepth = def
		}
		if ceiling > 0 {
			s.maxDepth = ceiling
		}
		if timeout > 0 {
			s.threadTimeout = timeout
		}
	}
}

// WithMetrics records operation outcomes.
func WithMetrics(m *metrics.Comments) Option {
	return func(s *CommentStore) { s.metrics = m }
}

func New(repo Repository, opts ...Option) *CommentStore {
	s := &CommentStore{
		repo:          repo,
		now:           func() time.Time { return time.Now().UTC() },
		defaultLimit:  DefaultReplyLimit,
		maxLimit:      MaxReplyLimit,
		defaultDepth:  DefaultThreadDepth,
		maxDepth:      MaxThreadDepth,
		threadTimeout: ThreadTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	if s.defaultDepth > s.maxDepth {
		s.defaultDepth = s.maxDepth
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// DefaultDepth is the depth used when a thread request does not name one.
func (s *CommentStore) DefaultDepth() int { return s.defaultDepth }

// Ping checks the storage connection.
func (s *CommentStore) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

// Create inserts a comment owned by in.AuthorID. A reply requires an
// existing, non-deleted parent.
func (s *CommentStore) Create(ctx context.Context, in domain.NewComment) (c domain.Comment, err error) {
	defer func() { s.metrics.Observe("create", err) }()

	if err := domain.ValidateCreate(in); err != nil {
		return domain.Comment{}, err
	}
	c, err = s.repo.Insert(ctx, in)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// Delete tombstones a comment. Deleting an already deleted comment succeeds
// without touching it.
func (s *CommentStore) Delete(ctx context.Context, id, callerID int64) (res DeleteResult, err error) {
	defer func() { s.metrics.Observe("delete", err) }()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete comment %d: %w", id, err)
	}
	if c.Deleted {
		return DeleteResult{Message: MsgAlreadyDeleted, AlreadyDeleted: true}, nil
	}
	if err := moderation.CanDelete(c, callerID).Err(); err != nil {
		return DeleteResult{}, err
	}

	changed, err := s.repo.MarkDeleted(ctx, id, callerID, s.now())
	if err != nil {
		return DeleteResult{}, fmt.Errorf("delete comment %d: %w", id, err)
	}
	if !changed {
		// A concurrent delete won the conditional write.
		return DeleteResult{Message: MsgAlreadyDeleted, AlreadyDeleted: true}, nil
	}
	return DeleteResult{Message: MsgDeleted}, nil
}

// Restore undoes a deletion by the author within domain.RestoreWindow.
func (s *CommentStore) Restore(ctx context.Context, id, callerID int64) (c domain.Comment, err error) {
	defer func() { s.metrics.Observe("restore", err) }()

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("restore comment %d: %w", id, err)
	}
	now := s.now()
	if err := moderation.CanRestore(cur, callerID, now).Err(); err != nil {
		return domain.Comment{}, err
	}

	c, ok, err := s.repo.ClearDeleted(ctx, id, callerID, moderation.RestoreCutoff(now), now)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("restore comment %d: %w", id, err)
	}
	if !ok {
		// Lost a race: the row was restored, or re-deleted, in between.
		latest, gerr := s.repo.Get(ctx, id)
		if gerr != nil {
			return domain.Comment{}, fmt.Errorf("restore comment %d: %w", id, gerr)
		}
		if derr := moderation.CanRestore(latest, callerID, now).Err(); derr != nil {
			return domain.Comment{}, derr
		}
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, nil
}

// ListTopLevel returns all non-deleted comments without a parent, oldest first.
func (s *CommentStore) ListTopLevel(ctx context.Context) (out []domain.Comment, err error) {
	defer func() { s.metrics.Observe("list_top_level", err) }()

	out, err = s.repo.ListTopLevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("list top level: %w", err)
	}
	return nonNil(out), nil
}

// ListReplies pages through the direct replies of parentID. limit <= 0 uses
// the default; larger values are capped.
func (s *CommentStore) ListReplies(ctx context.Context, parentID int64, token string, limit int) (page ReplyPage, err error) {
	defer func() { s.metrics.Observe("list_replies", err) }()

	switch {
	case limit <= 0:
		limit = s.defaultLimit
	case limit > s.maxLimit:
		limit = s.maxLimit
	}

	var after *int64
	if token != "" {
		id, err := cursor.Decode(token)
		if err != nil {
			return ReplyPage{}, err
		}
		after = &id
	}

	rows, err := s.repo.ListReplies(ctx, parentID, after, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			return ReplyPage{}, err
		}
		return ReplyPage{}, fmt.Errorf("list replies of %d: %w", parentID, err)
	}
	page.Data = nonNil(rows)
	if n := len(rows); n > 0 {
		page.NextCursor = cursor.Next(n, limit, rows[n-1].ID)
	}
	return page, nil
}

// ListOwnDeleted returns every tombstoned comment of callerID at any depth.
func (s *CommentStore) ListOwnDeleted(ctx context.Context, callerID int64) (out []domain.Comment, err error) {
	defer func() { s.metrics.Observe("list_own_deleted", err) }()

	out, err = s.repo.ListDeletedByAuthor(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("list deleted of %d: %w", callerID, err)
	}
	return nonNil(out), nil
}

// GetThread returns the subtree under rootID, at most maxDepth hops deep.
// maxDepth above the configured ceiling is clamped; a missing root yields an
// empty forest. The traversal runs under the thread deadline.
func (s *CommentStore) GetThread(ctx context.Context, rootID int64, maxDepth int) (nodes []thread.Node, err error) {
	defer func() { s.metrics.Observe("get_thread", err) }()

	if maxDepth < 0 {
		return nil, domain.Invalid("depth", "must not be negative")
	}
	maxDepth = thread.ClampDepth(maxDepth, s.maxDepth)

	ctx, cancel := context.WithTimeout(ctx, s.threadTimeout)
	defer cancel()

	rows, err := s.repo.Subtree(ctx, rootID, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("thread of %d: %w", rootID, err)
	}
	f := thread.Build(rows)
	s.metrics.ThreadSize(f.Len())
	return f.Nodes(), nil
}

func nonNil(cs []domain.Comment) []domain.Comment {
	if cs == nil {
		return []domain.Comment{}
	}
	return cs
}
