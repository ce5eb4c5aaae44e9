// Package natsconn provides the shared NATS connection factory and the
// JetStream stream bootstrap.
package natsconn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/config"
)

// Options configures the NATS connection behaviour.
// Zero values fall back to env vars or built-in defaults.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int           // default from NATS_MAX_RECONNECTS or 5
	ReconnectWait time.Duration // default from NATS_RECONNECT_WAIT or 2s
	Logger        *zap.Logger
}

// Connect establishes a NATS connection with the configured retry policy.
// On failure it returns an error so the caller can decide to run without NATS.
func Connect(opts Options) (*nats.Conn, error) {
	if opts.URL == "" {
		opts.URL = config.String("NATS_URL", "nats://nats:4222")
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = config.Int("NATS_MAX_RECONNECTS", 5)
	}
	if opts.ReconnectWait == 0 {
		opts.ReconnectWait = config.Duration("NATS_RECONNECT_WAIT", 2*time.Second)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name(opts.Name),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.RetryOnFailedConnect(false),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			redact(opts.URL), opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}

// StreamManager is the subset of nats.JetStreamContext EnsureStream needs.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStream creates the stream, or widens an existing one to cover subject.
func EnsureStream(js StreamManager, name, subject string, maxAge time.Duration) error {
	info, err := js.StreamInfo(name)
	if err == nil {
		for _, s := range info.Config.Subjects {
			if s == subject {
				return nil
			}
		}
		cfg := info.Config
		cfg.Subjects = append(cfg.Subjects, subject)
		_, err := js.UpdateStream(&cfg)
		return err
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{subject},
		Storage:  nats.FileStorage,
		MaxAge:   maxAge,
	})
	return err
}

// redact hides credentials embedded in a nats:// URL.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***@" + rest[at+1:]
	}
	return url
}

