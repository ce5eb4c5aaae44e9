// Package moderation decides whether a caller may delete or restore a comment.
// The decisions are pure: they never touch storage.
package moderation

import (
	"time"

	"github.com/example/comment-platform/services/comments/internal/domain"
)

// Reason explains a denied decision.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNotOwner      Reason = "not_owner"
	ReasonNotDeleted    Reason = "not_deleted"
	ReasonWindowExpired Reason = "restore_window_expired"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Err converts a denied decision to the matching domain error, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNotDeleted:
		return domain.ErrNotFound
	case ReasonWindowExpired:
		return domain.ErrRestoreWindowExpired
	default:
		return domain.ErrForbidden
	}
}

// CanDelete allows only the author. The current deleted state is irrelevant:
// deleting an already deleted comment is a no-op for its owner.
func CanDelete(c domain.Comment, callerID int64) Decision {
	if c.AuthorID != callerID {
		return deny(ReasonNotOwner)
	}
	return allow()
}

// CanRestore allows the author to undo a deletion no older than domain.RestoreWindow.
func CanRestore(c domain.Comment, callerID int64, now time.Time) Decision {
	if !c.Deleted {
		return deny(ReasonNotDeleted)
	}
	if c.AuthorID != callerID {
		return deny(ReasonNotOwner)
	}
	if c.DeletedAt == nil || now.Sub(*c.DeletedAt) > domain.RestoreWindow {
		return deny(ReasonWindowExpired)
	}
	return allow()
}

// RestoreCutoff is the oldest deletion time still restorable at now.
func RestoreCutoff(now time.Time) time.Time {
	return now.Add(-domain.RestoreWindow)
}
