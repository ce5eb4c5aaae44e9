// Package thread assembles a nested reply tree from the flat, depth-annotated
// rows of a bounded subtree traversal.
//
// Nodes live in an arena indexed by position; parent/child links are index
// lists, so the assembled forest has no back references.
package thread

import (
	"sort"

	"github.com/example/comment-platform/services/comments/internal/domain"
)

// Row is one result of the subtree traversal: a comment and its hop distance
// from the traversal root.
type Row struct {
	Comment domain.Comment
	Depth   int
}

// Node is the materialized view of one comment in a thread.
type Node struct {
	domain.Comment
	Depth    int    `json:"depth"`
	Children []Node `json:"children"`
}

// Forest is an id-indexed arena of rows plus child index lists.
type Forest struct {
	rows     []Row
	index    map[int64]int
	children [][]int
	roots    []int
}

// Build assembles rows into a forest in one pass. Rows are ordered by depth,
// then created_at, then id before linking, so every parent precedes its
// children. A row whose parent is absent from the set becomes a root.
func Build(rows []Row) *Forest {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if !a.Comment.CreatedAt.Equal(b.Comment.CreatedAt) {
			return a.Comment.CreatedAt.Before(b.Comment.CreatedAt)
		}
		return a.Comment.ID < b.Comment.ID
	})

	f := &Forest{
		rows:     make([]Row, 0, len(sorted)),
		index:    make(map[int64]int, len(sorted)),
		children: make([][]int, 0, len(sorted)),
	}
	for _, r := range sorted {
		if _, dup := f.index[r.Comment.ID]; dup {
			continue
		}
		idx := len(f.rows)
		f.rows = append(f.rows, r)
		f.children = append(f.children, nil)
		f.index[r.Comment.ID] = idx

		if r.Depth > 0 && r.Comment.ParentID != nil {
			if p, ok := f.index[*r.Comment.ParentID]; ok {
				f.children[p] = append(f.children[p], idx)
				continue
			}
		}
		f.roots = append(f.roots, idx)
	}
	return f
}

// Len is the number of distinct comments in the forest.
func (f *Forest) Len() int { return len(f.rows) }

// Nodes materializes the forest as nested values, roots first.
func (f *Forest) Nodes() []Node {
	out := make([]Node, 0, len(f.roots))
	for _, idx := range f.roots {
		out = append(out, f.node(idx))
	}
	return out
}

func (f *Forest) node(idx int) Node {
	r := f.rows[idx]
	n := Node{Comment: r.Comment, Depth: r.Depth, Children: make([]Node, 0, len(f.children[idx]))}
	for _, c := range f.children[idx] {
		n.Children = append(n.Children, f.node(c))
	}
	return n
}

// ClampDepth bounds a requested depth to [0, ceiling].
func ClampDepth(requested, ceiling int) int {
	if requested < 0 {
		return 0
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}
