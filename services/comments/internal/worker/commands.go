// Package worker applies comment commands delivered over NATS JetStream.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/events"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/idempotency"
	"github.com/example/comment-platform/services/comments/internal/store"
)

const (
	SubjectPrefix  = "comments.commands."
	SubjectCreate  = SubjectPrefix + "create"
	SubjectDelete  = SubjectPrefix + "delete"
	SubjectRestore = SubjectPrefix + "restore"

	DurableName = "comments_commands"
)

// Command is the payload of every comments.commands.* message.
type Command struct {
	EventID   string `json:"event_id"`
	UserID    int64  `json:"user_id"`
	CommentID int64  `json:"comment_id,omitempty"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Body      string `json:"body,omitempty"`
}

// Outcome tells the fetch loop how to settle a message.
type Outcome int

const (
	Ack  Outcome = iota // done, nothing left to redeliver
	Nak                 // storage failure; redeliver
	Term                // malformed; never redeliver
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Nak:
		return "nak"
	default:
		return "term"
	}
}

// Consumer pulls commands in batches and runs them through the CommentStore,
// so they get the same policy checks and conditional writes as API calls.
type Consumer struct {
	Comments  *store.CommentStore
	Dedup     idempotency.Store
	Events    *events.Publisher
	Log       *zap.Logger
	BatchSize int
	MaxWait   time.Duration
}

// Run subscribes and processes until ctx is done.
func (c *Consumer) Run(ctx context.Context, js nats.JetStreamContext) error {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 2 * time.Second
	}
	sub, err := js.PullSubscribe(SubjectPrefix+"*", DurableName, nats.AckExplicit())
	if err != nil {
		return fmt.Errorf("commands subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	c.Log.Info("commands consumer started", zap.String("subject", SubjectPrefix+"*"))
	for {
		if ctx.Err() != nil {
			return nil
		}
		msgs, err := sub.Fetch(c.BatchSize, nats.MaxWait(c.MaxWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.Log.Warn("commands fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		for _, m := range msgs {
			c.settle(m, c.Handle(ctx, m.Subject, m.Data))
		}
	}
}

func (c *Consumer) settle(m *nats.Msg, o Outcome) {
	var err error
	switch o {
	case Ack:
		err = m.Ack()
	case Nak:
		err = m.Nak()
	default:
		err = m.Term()
	}
	if err != nil {
		c.Log.Warn("commands settle failed", zap.String("outcome", o.String()), zap.Error(err))
	}
}

// Handle applies one command and reports how to settle it.
func (c *Consumer) Handle(ctx context.Context, subject string, data []byte) Outcome {
	action := strings.TrimPrefix(subject, SubjectPrefix)
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.Log.Warn("commands: invalid payload", zap.String("subject", subject), zap.Error(err))
		return Term
	}
	if strings.TrimSpace(cmd.EventID) == "" || cmd.UserID < 1 {
		c.Log.Warn("commands: missing event_id or user_id", zap.String("subject", subject))
		return Term
	}

	key := "cmd:" + cmd.EventID
	dup, err := c.Dedup.Check(ctx, key)
	if err != nil {
		c.Log.Error("commands: dedup check failed", zap.String("event_id", cmd.EventID), zap.Error(err))
		return Nak
	}
	if dup {
		c.Log.Debug("commands: duplicate", zap.String("event_id", cmd.EventID))
		return Ack
	}

	err = c.apply(ctx, action, cmd)
	switch {
	case err == nil:
		return Ack
	case errors.Is(err, errUnknownAction):
		c.Log.Warn("commands: unknown action", zap.String("subject", subject))
		return Term
	case isDomainRejection(err):
		c.Log.Info("commands: rejected", zap.String("event_id", cmd.EventID), zap.String("action", action), zap.Error(err))
		return Ack
	default:
		if rerr := c.Dedup.Release(ctx, key); rerr != nil {
			c.Log.Warn("commands: dedup release failed", zap.String("event_id", cmd.EventID), zap.Error(rerr))
		}
		c.Log.Error("commands: apply failed", zap.String("event_id", cmd.EventID), zap.String("action", action), zap.Error(err))
		return Nak
	}
}

var errUnknownAction = errors.New("unknown action")

func (c *Consumer) apply(ctx context.Context, action string, cmd Command) error {
	switch action {
	case "create":
		created, err := c.Comments.Create(ctx, domain.NewComment{Body: cmd.Body, ParentID: cmd.ParentID, AuthorID: cmd.UserID})
		if err != nil {
			return err
		}
		c.Events.Publish(events.SubjectCreated, cmd.UserID, created.ID, created.ParentID)
	case "delete":
		res, err := c.Comments.Delete(ctx, cmd.CommentID, cmd.UserID)
		if err != nil {
			return err
		}
		if !res.AlreadyDeleted {
			c.Events.Publish(events.SubjectDeleted, cmd.UserID, cmd.CommentID, nil)
		}
	case "restore":
		restored, err := c.Comments.Restore(ctx, cmd.CommentID, cmd.UserID)
		if err != nil {
			return err
		}
		c.Events.Publish(events.SubjectRestored, cmd.UserID, restored.ID, restored.ParentID)
	default:
		return errUnknownAction
	}
	return nil
}

func isDomainRejection(err error) bool {
	return domain.IsValidation(err) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden)
}
