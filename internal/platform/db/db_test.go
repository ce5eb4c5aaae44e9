package db

import (
	"context"
	"errors"
	"testing"
)

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); !errors.Is(err, ErrNoDSN) {
		t.Fatalf("expected ErrNoDSN, got %v", err)
	}
}

func TestOpen_MalformedDSN(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}
