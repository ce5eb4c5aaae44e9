package grpcapi

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/store"
)

const errorDomain = "comments"

func errInvalidArgument(reason, msg, field string) error {
	st := status.New(codes.InvalidArgument, msg)
	info := &errdetails.ErrorInfo{Reason: reason, Domain: errorDomain}
	bad := &errdetails.BadRequest{FieldViolations: []*errdetails.BadRequest_FieldViolation{
		{Field: field, Description: msg},
	}}
	st2, err := st.WithDetails(info, bad)
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

func errWithReason(c codes.Code, reason, msg string) error {
	st := status.New(c, msg)
	st2, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: errorDomain})
	if err != nil {
		return st.Err()
	}
	return st2.Err()
}

// toStatus maps a CommentStore error to a gRPC status. Only unclassified
// failures are logged.
func toStatus(log *zap.Logger, method string, err error) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return errInvalidArgument("VALIDATION_FAILED", verr.Message, verr.Field)
	case errors.Is(err, domain.ErrInvalidCursor):
		return errInvalidArgument("INVALID_CURSOR", "cursor is malformed or does not belong to this listing", "cursor")
	case errors.Is(err, domain.ErrRestoreWindowExpired):
		return errWithReason(codes.PermissionDenied, "RESTORE_WINDOW_EXPIRED", "restore window has expired")
	case errors.Is(err, domain.ErrForbidden):
		return errWithReason(codes.PermissionDenied, "NOT_OWNER", "only the author may do this")
	case errors.Is(err, domain.ErrNotFound):
		return errWithReason(codes.NotFound, "NOT_FOUND", "comment not found")
	case errors.Is(err, store.ErrUnavailable):
		return errWithReason(codes.Unavailable, "STORAGE_UNAVAILABLE", "storage temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	default:
		log.Error("comments: storage failure", zap.String("method", method), zap.Error(err))
		return errWithReason(codes.Internal, "INTERNAL", "internal error")
	}
}
