package grpcapi

import (
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

type CreateCommentRequest struct {
	Body     string `json:"body"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type CommentIDRequest struct {
	ID int64 `json:"id"`
}

type CommentResponse struct {
	Comment domain.Comment `json:"comment"`
}

type DeleteCommentResponse struct {
	Message        string `json:"message"`
	AlreadyDeleted bool   `json:"already_deleted"`
}

type ListRequest struct{}

type ListCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
}

type ListRepliesRequest struct {
	ParentID int64  `json:"parent_id"`
	Cursor   string `json:"cursor,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type ListRepliesResponse struct {
	Comments   []domain.Comment `json:"comments"`
	NextCursor *string          `json:"next_cursor"`
}

type GetThreadRequest struct {
	RootID int64 `json:"root_id"`
	// Depth nil means the configured default.
	Depth *int `json:"depth,omitempty"`
}

type GetThreadResponse struct {
	Nodes []thread.Node `json:"nodes"`
}
