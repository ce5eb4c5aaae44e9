// Package metrics holds the Prometheus collectors of the comment service.
// A nil *Comments is a valid no-op recorder.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/comment-platform/services/comments/internal/domain"
)

type Comments struct {
	ops        *prometheus.CounterVec
	threadSize prometheus.Histogram
}

// NewComments registers the comment collectors on reg.
func NewComments(reg prometheus.Registerer) *Comments {
	m := &Comments{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "comments_operations_total",
			Help: "Comment store operations by outcome.",
		}, []string{"op", "outcome"}),
		threadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "comments_thread_nodes",
			Help:    "Number of comments returned per thread request.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
	reg.MustRegister(m.ops, m.threadSize)
	return m
}

// Observe counts one operation, classified by its error.
func (m *Comments) Observe(op string, err error) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(op, Outcome(err)).Inc()
}

// ThreadSize records the node count of a materialized thread.
func (m *Comments) ThreadSize(n int) {
	if m == nil {
		return
	}
	m.threadSize.Observe(float64(n))
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsValidation(err):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
