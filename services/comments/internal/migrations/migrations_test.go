package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSource_ContainsOrderedMigrations(t *testing.T) {
	src, err := Source()
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	names, err := fs.Glob(src, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected at least 2 migrations, got %v", names)
	}
	if names[0] != "00001_init.sql" {
		t.Fatalf("expected init migration first, got %v", names)
	}
	for _, n := range names {
		b, err := fs.ReadFile(src, n)
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		body := string(b)
		if !strings.Contains(body, "-- +goose Up") || !strings.Contains(body, "-- +goose Down") {
			t.Fatalf("%s: missing goose annotations", n)
		}
	}
}

func TestInit_DeclaresTombstoneConstraint(t *testing.T) {
	src, _ := Source()
	b, err := fs.ReadFile(src, "00001_init.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), "comments_tombstone_consistent") {
		t.Fatal("expected deleted/deleted_at consistency check")
	}
}
