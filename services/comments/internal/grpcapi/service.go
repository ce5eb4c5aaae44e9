// Package grpcapi serves the comment operations over gRPC with a JSON codec.
package grpcapi

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/store"
)

const ServiceName = "comments.v1.CommentService"

// CommentServiceServer is the server API for the comment service.
type CommentServiceServer interface {
	CreateComment(context.Context, *CreateCommentRequest) (*CommentResponse, error)
	DeleteComment(context.Context, *CommentIDRequest) (*DeleteCommentResponse, error)
	RestoreComment(context.Context, *CommentIDRequest) (*CommentResponse, error)
	ListTopLevel(context.Context, *ListRequest) (*ListCommentsResponse, error)
	ListReplies(context.Context, *ListRepliesRequest) (*ListRepliesResponse, error)
	GetThread(context.Context, *GetThreadRequest) (*GetThreadResponse, error)
	ListOwnDeleted(context.Context, *ListRequest) (*ListCommentsResponse, error)
}

// CommentService implements CommentServiceServer on top of a CommentStore.
type CommentService struct {
	Comments *store.CommentStore
	Events   *events.Publisher
	Log      *zap.Logger
}

var _ CommentServiceServer = (*CommentService)(nil)

// RegisterCommentServiceServer registers srv on s.
func RegisterCommentServiceServer(s grpc.ServiceRegistrar, srv CommentServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func (s *CommentService) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// userIDFromMD reads the caller id set by the gateway in the user_id metadata key.
func userIDFromMD(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("user_id")
	if len(vals) == 0 {
		return 0, status.Error(codes.Unauthenticated, "missing user_id in metadata")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(vals[0]), 10, 64)
	if err != nil || id < 1 {
		return 0, status.Error(codes.Unauthenticated, "user_id must be a positive integer")
	}
	return id, nil
}

func requireID(id int64, field string) error {
	if id < 1 {
		return errInvalidArgument("VALIDATION_FAILED", "must be a positive integer", field)
	}
	return nil
}

func (s *CommentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*CommentResponse, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.Comments.Create(ctx, domain.NewComment{Body: req.Body, ParentID: req.ParentID, AuthorID: userID})
	if err != nil {
		return nil, toStatus(s.log(), "CreateComment", err)
	}
	s.Events.Publish(events.SubjectCreated, userID, c.ID, c.ParentID)
	return &CommentResponse{Comment: c}, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, req *CommentIDRequest) (*DeleteCommentResponse, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireID(req.ID, "id"); err != nil {
		return nil, err
	}
	res, err := s.Comments.Delete(ctx, req.ID, userID)
	if err != nil {
		return nil, toStatus(s.log(), "DeleteComment", err)
	}
	if !res.AlreadyDeleted {
		s.Events.Publish(events.SubjectDeleted, userID, req.ID, nil)
	}
	return &DeleteCommentResponse{Message: res.Message, AlreadyDeleted: res.AlreadyDeleted}, nil
}

func (s *CommentService) RestoreComment(ctx context.Context, req *CommentIDRequest) (*CommentResponse, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireID(req.ID, "id"); err != nil {
		return nil, err
	}
	c, err := s.Comments.Restore(ctx, req.ID, userID)
	if err != nil {
		return nil, toStatus(s.log(), "RestoreComment", err)
	}
	s.Events.Publish(events.SubjectRestored, userID, c.ID, c.ParentID)
	return &CommentResponse{Comment: c}, nil
}

func (s *CommentService) ListTopLevel(ctx context.Context, _ *ListRequest) (*ListCommentsResponse, error) {
	out, err := s.Comments.ListTopLevel(ctx)
	if err != nil {
		return nil, toStatus(s.log(), "ListTopLevel", err)
	}
	return &ListCommentsResponse{Comments: out}, nil
}

func (s *CommentService) ListReplies(ctx context.Context, req *ListRepliesRequest) (*ListRepliesResponse, error) {
	if err := requireID(req.ParentID, "parent_id"); err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errInvalidArgument("VALIDATION_FAILED", "must not be negative", "limit")
	}
	page, err := s.Comments.ListReplies(ctx, req.ParentID, strings.TrimSpace(req.Cursor), req.Limit)
	if err != nil {
		return nil, toStatus(s.log(), "ListReplies", err)
	}
	return &ListRepliesResponse{Comments: page.Data, NextCursor: page.NextCursor}, nil
}

func (s *CommentService) GetThread(ctx context.Context, req *GetThreadRequest) (*GetThreadResponse, error) {
	if err := requireID(req.RootID, "root_id"); err != nil {
		return nil, err
	}
	depth := s.Comments.DefaultDepth()
	if req.Depth != nil {
		depth = *req.Depth
	}
	nodes, err := s.Comments.GetThread(ctx, req.RootID, depth)
	if err != nil {
		return nil, toStatus(s.log(), "GetThread", err)
	}
	return &GetThreadResponse{Nodes: nodes}, nil
}

func (s *CommentService) ListOwnDeleted(ctx context.Context, _ *ListRequest) (*ListCommentsResponse, error) {
	userID, err := userIDFromMD(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.Comments.ListOwnDeleted(ctx, userID)
	if err != nil {
		return nil, toStatus(s.log(), "ListOwnDeleted", err)
	}
	return &ListCommentsResponse{Comments: out}, nil
}
