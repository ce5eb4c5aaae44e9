package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/store"
)

// writeError maps a CommentStore error to the API envelope. Only
// unclassified failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		api.BadRequest(w, r, "VALIDATION_FAILED", verr.Message, map[string]any{"field": verr.Field})
	case errors.Is(err, domain.ErrInvalidCursor):
		api.BadRequest(w, r, "INVALID_CURSOR", "cursor is malformed or does not belong to this listing", nil)
	case errors.Is(err, domain.ErrRestoreWindowExpired):
		api.Forbidden(w, r, "RESTORE_WINDOW_EXPIRED", "restore window has expired")
	case errors.Is(err, domain.ErrForbidden):
		api.Forbidden(w, r, "FORBIDDEN", "only the author may do this")
	case errors.Is(err, domain.ErrNotFound):
		api.NotFound(w, r, "comment not found")
	case errors.Is(err, store.ErrUnavailable):
		api.Unavailable(w, r, "storage temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		api.Write(w, r, api.Problem{Status: http.StatusGatewayTimeout, Code: "TIMEOUT", Message: "request timed out"})
	default:
		log.Error("comments: storage failure", zap.String("request_id", api.RequestID(r.Context())), zap.Error(err))
		api.Internal(w, r)
	}
}
