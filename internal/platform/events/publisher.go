// Package events publishes comment lifecycle events to NATS JetStream.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream holds every comments.* subject.
const (
	StreamName    = "COMMENTS"
	StreamSubject = "comments.>"
)

// Subject constants for every lifecycle event type.
const (
	SubjectCreated  = "comments.events.created"
	SubjectDeleted  = "comments.events.deleted"
	SubjectRestored = "comments.events.restored"
)

// Event is the envelope sent to all comments.events.* subjects.
type Event struct {
	EventID    string    `json:"event_id"`
	EventName  string    `json:"event_name"`
	ActorID    int64     `json:"actor_id"`
	CommentID  int64     `json:"comment_id"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type asyncPublisher interface {
	PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error)
}

// Publisher publishes events fire-and-forget.
// The zero value and a nil pointer are both safe no-op stubs.
type Publisher struct {
	js  asyncPublisher
	log *zap.Logger
	now func() time.Time
}

// New creates a Publisher using an existing JetStream context.
// Pass js=nil to get a no-op stub.
func New(js nats.JetStreamContext, log *zap.Logger) *Publisher {
	if js == nil {
		return &Publisher{log: log}
	}
	return newPublisher(js, log)
}

func newPublisher(js asyncPublisher, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{js: js, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Publish sends one event. Failures are logged and never reach the caller.
func (p *Publisher) Publish(subject string, actorID, commentID int64, parentID *int64) {
	if p == nil || p.js == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  subject,
		ActorID:    actorID,
		CommentID:  commentID,
		ParentID:   parentID,
		OccurredAt: p.now(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("events: marshal failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	if _, err := p.js.PublishAsync(subject, data, nats.MsgId(ev.EventID)); err != nil {
		p.log.Warn("events: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
