// Package domain holds the comment entity and the error taxonomy shared by
// the storage, policy and API layers.
package domain

import "time"

const (
	// MaxBodyLength caps a comment body, counted in runes.
	MaxBodyLength = 10_000
	// RestoreWindow is how long after deletion the author may undo it.
	RestoreWindow = 15 * time.Minute
)

// Author is the projection of the external user row.
type Author struct {
	Username string `json:"username"`
}

// Comment is the only persisted entity. A nil ParentID marks a top-level comment.
type Comment struct {
	ID        int64      `json:"id"`
	Body      string     `json:"body"`
	AuthorID  int64      `json:"author_id"`
	ParentID  *int64     `json:"parent_id"`
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Author    *Author    `json:"author,omitempty"`
}

// IsTopLevel reports whether the comment has no parent.
func (c Comment) IsTopLevel() bool { return c.ParentID == nil }

// NewComment carries the caller-supplied fields of a comment to create.
type NewComment struct {
	Body     string
	ParentID *int64
	AuthorID int64
}
