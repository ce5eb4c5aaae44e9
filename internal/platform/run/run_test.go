package run

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.uber.org/zap"
)

func TestUntil_ExitCodes(t *testing.T) {
	r := New(zap.NewNop())
	tests := map[string]struct {
		err  error
		want int
	}{
		"clean":         {nil, 0},
		"server closed": {http.ErrServerClosed, 0},
		"failure":       {errors.New("listen: address in use"), 1},
	}
	for name, tt := range tests {
		code := r.Until(context.Background(), func(context.Context) error { return tt.err })
		if code != tt.want {
			t.Fatalf("%s: expected %d, got %d", name, tt.want, code)
		}
	}
}

func TestUntil_ContextCanceled(t *testing.T) {
	r := New(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	code := r.Until(ctx, func(context.Context) error {
		<-release
		return nil
	})
	if code != 0 {
		t.Fatalf("expected 0, got %d", code)
	}
}
