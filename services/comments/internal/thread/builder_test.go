package thread

import (
	"testing"
	"time"

	"github.com/example/comment-platform/services/comments/internal/domain"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func row(id int64, parent int64, depth int) Row {
	c := domain.Comment{ID: id, AuthorID: 1, Body: "c", CreatedAt: base.Add(time.Duration(id) * time.Second)}
	if parent != 0 {
		p := parent
		c.ParentID = &p
	}
	return Row{Comment: c, Depth: depth}
}

func TestBuild_Scenario(t *testing.T) {
	// A(1) -> B(2) -> D(4); A(1) -> C(3). Input deliberately unsorted.
	rows := []Row{row(4, 2, 2), row(3, 1, 1), row(1, 0, 0), row(2, 1, 1)}

	f := Build(rows)
	if f.Len() != 4 {
		t.Fatalf("expected 4 nodes, got %d", f.Len())
	}
	nodes := f.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("expected one root, got %d", len(nodes))
	}
	a := nodes[0]
	if a.ID != 1 || a.Depth != 0 {
		t.Fatalf("unexpected root %d depth %d", a.ID, a.Depth)
	}
	if len(a.Children) != 2 || a.Children[0].ID != 2 || a.Children[1].ID != 3 {
		t.Fatalf("expected children [2 3], got %+v", a.Children)
	}
	b, c := a.Children[0], a.Children[1]
	if b.Depth != 1 || c.Depth != 1 {
		t.Fatalf("expected depth 1 for B and C, got %d and %d", b.Depth, c.Depth)
	}
	if len(b.Children) != 1 || b.Children[0].ID != 4 || b.Children[0].Depth != 2 {
		t.Fatalf("expected B -> [D@2], got %+v", b.Children)
	}
	if c.Children == nil || len(c.Children) != 0 {
		t.Fatalf("expected empty non-nil children for C, got %#v", c.Children)
	}
}

func TestBuild_Empty(t *testing.T) {
	f := Build(nil)
	if f.Len() != 0 {
		t.Fatalf("expected empty forest, got %d", f.Len())
	}
	if nodes := f.Nodes(); len(nodes) != 0 {
		t.Fatalf("expected no roots, got %d", len(nodes))
	}
}

func TestBuild_RootIsReply(t *testing.T) {
	// Traversal rooted at a reply: its parent is not in the row set.
	rows := []Row{row(5, 2, 0), row(6, 5, 1)}
	nodes := Build(rows).Nodes()
	if len(nodes) != 1 || nodes[0].ID != 5 {
		t.Fatalf("expected the reply to be the root, got %+v", nodes)
	}
	if len(nodes[0].Children) != 1 || nodes[0].Children[0].ID != 6 {
		t.Fatalf("expected child 6, got %+v", nodes[0].Children)
	}
}

func TestBuild_OrphanBecomesRoot(t *testing.T) {
	rows := []Row{row(1, 0, 0), row(9, 8, 2)}
	nodes := Build(rows).Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(nodes))
	}
	if nodes[1].ID != 9 {
		t.Fatalf("expected orphan 9 as second root, got %d", nodes[1].ID)
	}
}

func TestBuild_ChildOrderByCreatedAt(t *testing.T) {
	early := row(10, 1, 1)
	late := row(11, 1, 1)
	// id order disagrees with created_at order
	early.Comment.CreatedAt = base.Add(time.Hour)
	late.Comment.CreatedAt = base.Add(time.Minute)

	nodes := Build([]Row{row(1, 0, 0), early, late}).Nodes()
	got := nodes[0].Children
	if len(got) != 2 || got[0].ID != 11 || got[1].ID != 10 {
		t.Fatalf("expected [11 10] by created_at, got %+v", got)
	}
}

func TestBuild_DuplicateRowsIgnored(t *testing.T) {
	nodes := Build([]Row{row(1, 0, 0), row(2, 1, 1), row(2, 1, 1)}).Nodes()
	if len(nodes[0].Children) != 1 {
		t.Fatalf("expected a single child, got %d", len(nodes[0].Children))
	}
}

func TestClampDepth(t *testing.T) {
	tests := []struct{ in, ceiling, want int }{
		{-1, 10, 0},
		{0, 10, 0},
		{5, 10, 5},
		{10, 10, 10},
		{1000, 10, 10},
	}
	for _, tt := range tests {
		if got := ClampDepth(tt.in, tt.ceiling); got != tt.want {
			t.Fatalf("ClampDepth(%d, %d) = %d, want %d", tt.in, tt.ceiling, got, tt.want)
		}
	}
}
