// Package handlers exposes CommentStore over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/api"
	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/internal/platform/httpserver"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/idempotency"
	"github.com/example/comment-platform/services/comments/internal/store"
)

const maxRequestBody = 64 << 10

// Deps are the collaborators shared by every handler. Events and Idempotency
// may be nil.
type Deps struct {
	Comments    *store.CommentStore
	Events      *events.Publisher
	Idempotency idempotency.Store
	Log         *zap.Logger
}

func (d Deps) log() *zap.Logger {
	if d.Log == nil {
		return zap.NewNop()
	}
	return d.Log
}

type createCommentRequest struct {
	Body     string `json:"body"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// Routes registers the comment endpoints. Writes require a bearer token and,
// when limiter is set, are rate limited per caller.
func Routes(r chi.Router, d Deps, verifier auth.JWTVerifier, limiter *httpserver.RateLimiter) {
	r.Route("/v1/comments", func(r chi.Router) {
		r.Get("/", ListTopLevel(d))
		r.Get("/{id}/replies", ListReplies(d))
		r.Get("/{id}/thread", GetThread(d))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireUser(verifier))
			r.Get("/deleted", ListOwnDeleted(d))

			r.Group(func(r chi.Router) {
				if limiter != nil {
					r.Use(limiter.Middleware)
				}
				r.Post("/", CreateComment(d))
				r.Delete("/{id}", DeleteComment(d))
				r.Post("/{id}/restore", RestoreComment(d))
			})
		})
	})
}

// CallerKey buckets rate limiting by authenticated user, falling back to IP.
func CallerKey(r *http.Request) string {
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + strconv.FormatInt(uid, 10)
	}
	return "ip:" + httpserver.ClientIP(r)
}

// CreateComment handles POST /v1/comments
func CreateComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := api.RequestID(r.Context())
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, r)
			return
		}

		var req createCommentRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			api.BadRequest(w, r, "INVALID_JSON", "invalid JSON", nil)
			return
		}

		var idemKey string
		if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && d.Idempotency != nil {
			idemKey = strconv.FormatInt(userID, 10) + ":" + key
			dup, err := d.Idempotency.Check(r.Context(), idemKey)
			if err != nil {
				d.log().Error("idempotency check failed", zap.String("request_id", rid), zap.Error(err))
				api.Internal(w, r)
				return
			}
			if dup {
				api.Conflict(w, r, "DUPLICATE_REQUEST", "a request with this Idempotency-Key was already processed",
					map[string]any{"idempotency_key": key})
				return
			}
		}

		created, err := d.Comments.Create(r.Context(), domain.NewComment{
			Body:     req.Body,
			ParentID: req.ParentID,
			AuthorID: userID,
		})
		if err != nil {
			if idemKey != "" {
				if rerr := d.Idempotency.Release(r.Context(), idemKey); rerr != nil {
					d.log().Warn("idempotency release failed", zap.String("request_id", rid), zap.Error(rerr))
				}
			}
			writeError(w, r, d.log(), err)
			return
		}
		d.Events.Publish(events.SubjectCreated, userID, created.ID, created.ParentID)
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// DeleteComment handles DELETE /v1/comments/{id}
func DeleteComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, r)
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		res, err := d.Comments.Delete(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		if !res.AlreadyDeleted {
			d.Events.Publish(events.SubjectDeleted, userID, id, nil)
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}

// RestoreComment handles POST /v1/comments/{id}/restore
func RestoreComment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, r)
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		c, err := d.Comments.Restore(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		d.Events.Publish(events.SubjectRestored, userID, c.ID, c.ParentID)
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// ListTopLevel handles GET /v1/comments
func ListTopLevel(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.Comments.ListTopLevel(r.Context())
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListReplies handles GET /v1/comments/{id}/replies?cursor=&limit=
func ListReplies(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()

		limit := 0
		if l := strings.TrimSpace(q.Get("limit")); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				api.BadRequest(w, r, "INVALID_LIMIT", "limit must be a positive integer", nil)
				return
			}
			limit = n
		}

		page, err := d.Comments.ListReplies(r.Context(), id, strings.TrimSpace(q.Get("cursor")), limit)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		api.WriteJSON(w, http.StatusOK, page)
	}
}

// GetThread handles GET /v1/comments/{id}/thread?depth=
func GetThread(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		depth := d.Comments.DefaultDepth()
		if v := strings.TrimSpace(r.URL.Query().Get("depth")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				api.BadRequest(w, r, "INVALID_DEPTH", "depth must be an integer", nil)
				return
			}
			depth = n
		}

		nodes, err := d.Comments.GetThread(r.Context(), id, depth)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		api.WriteJSON(w, http.StatusOK, nodes)
	}
}

// ListOwnDeleted handles GET /v1/comments/deleted
func ListOwnDeleted(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, r)
			return
		}
		out, err := d.Comments.ListOwnDeleted(r.Context(), userID)
		if err != nil {
			writeError(w, r, d.log(), err)
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(chi.URLParam(r, "id")), 10, 64)
	if err != nil || id < 1 {
		api.BadRequest(w, r, "INVALID_ID", "id must be a positive integer", nil)
		return 0, false
	}
	return id, true
}
