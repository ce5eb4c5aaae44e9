package store

import (
	"context"
	"time"

	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

// Repository is the relational boundary. Every mutation is a single
// conditional write; implementations never read-then-write.
type Repository interface {
	// Insert creates a comment. When in.ParentID is set, the insert only
	// happens if that parent exists and is not deleted; otherwise it
	// returns domain.ErrNotFound.
	Insert(ctx context.Context, in domain.NewComment) (domain.Comment, error)
	// Get returns the comment with its author projection, deleted or not.
	Get(ctx context.Context, id int64) (domain.Comment, error)
	// MarkDeleted sets deleted/deleted_at iff the row matches
	// (id, authorID, deleted=false). It reports whether a row changed.
	MarkDeleted(ctx context.Context, id, authorID int64, at time.Time) (bool, error)
	// ClearDeleted restores the row iff it matches (id, authorID, deleted=true)
	// and was deleted at or after cutoff. ok is false when nothing changed.
	ClearDeleted(ctx context.Context, id, authorID int64, cutoff, at time.Time) (c domain.Comment, ok bool, err error)

	ListTopLevel(ctx context.Context) ([]domain.Comment, error)
	// ListReplies returns up to limit non-deleted replies of parentID ordered
	// by (created_at, id), strictly after the row afterID when it is set.
	// afterID must name a reply of parentID, else domain.ErrInvalidCursor.
	ListReplies(ctx context.Context, parentID int64, afterID *int64, limit int) ([]domain.Comment, error)
	ListDeletedByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error)
	// Subtree walks at most maxDepth hops below rootID. The root is always
	// included; below it only non-deleted rows are followed.
	Subtree(ctx context.Context, rootID int64, maxDepth int) ([]thread.Row, error)

	Ping(ctx context.Context) error
}
