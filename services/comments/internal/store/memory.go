package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

// InMemoryRepository is a development-only Repository. Each method holds the
// lock for its whole body, which makes every conditional write atomic.
type InMemoryRepository struct {
	mu       sync.RWMutex
	comments map[int64]domain.Comment
	users    map[int64]string // id -> username
	nextID   int64
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		comments: make(map[int64]domain.Comment),
		users:    make(map[int64]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for created_at/updated_at.
func (r *InMemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// AddUser registers an author. Inserting a comment for an unknown author fails
// the way a foreign key violation would.
func (r *InMemoryRepository) AddUser(id int64, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = username
}

func (r *InMemoryRepository) Insert(_ context.Context, in domain.NewComment) (domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if in.ParentID != nil {
		p, ok := r.comments[*in.ParentID]
		if !ok || p.Deleted {
			return domain.Comment{}, fmt.Errorf("parent %d: %w", *in.ParentID, domain.ErrNotFound)
		}
	}
	if _, ok := r.users[in.AuthorID]; !ok {
		return domain.Comment{}, fmt.Errorf("author %d: %w", in.AuthorID, domain.ErrNotFound)
	}

	r.nextID++
	now := r.now()
	c := domain.Comment{
		ID:        r.nextID,
		Body:      in.Body,
		AuthorID:  in.AuthorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.ParentID != nil {
		pid := *in.ParentID
		c.ParentID = &pid
	}
	r.comments[c.ID] = c
	return r.project(c), nil
}

func (r *InMemoryRepository) Get(_ context.Context, id int64) (domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return r.project(c), nil
}

func (r *InMemoryRepository) MarkDeleted(_ context.Context, id, authorID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.AuthorID != authorID || c.Deleted {
		return false, nil
	}
	c.Deleted = true
	c.DeletedAt = &at
	c.UpdatedAt = at
	r.comments[id] = c
	return true, nil
}

func (r *InMemoryRepository) ClearDeleted(_ context.Context, id, authorID int64, cutoff, at time.Time) (domain.Comment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.comments[id]
	if !ok || c.AuthorID != authorID || !c.Deleted || c.DeletedAt == nil || c.DeletedAt.Before(cutoff) {
		return domain.Comment{}, false, nil
	}
	c.Deleted = false
	c.DeletedAt = nil
	c.UpdatedAt = at
	r.comments[id] = c
	return r.project(c), true, nil
}

func (r *InMemoryRepository) ListTopLevel(_ context.Context) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.filter(func(c domain.Comment) bool { return c.ParentID == nil && !c.Deleted })
	sortByCreated(out)
	return out, nil
}

func (r *InMemoryRepository) ListReplies(_ context.Context, parentID int64, afterID *int64, limit int) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var anchor domain.Comment
	if afterID != nil {
		a, ok := r.comments[*afterID]
		if !ok || a.ParentID == nil || *a.ParentID != parentID {
			return nil, domain.ErrInvalidCursor
		}
		anchor = a
	}

	out := r.filter(func(c domain.Comment) bool {
		if c.Deleted || c.ParentID == nil || *c.ParentID != parentID {
			return false
		}
		return afterID == nil || after(c, anchor)
	})
	sortByCreated(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) ListDeletedByAuthor(_ context.Context, authorID int64) ([]domain.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.filter(func(c domain.Comment) bool { return c.AuthorID == authorID && c.Deleted })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeletedAt.Equal(*out[j].DeletedAt) {
			return out[i].DeletedAt.After(*out[j].DeletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) Subtree(ctx context.Context, rootID int64, maxDepth int) ([]thread.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.comments[rootID]
	if !ok {
		return nil, nil
	}

	children := make(map[int64][]domain.Comment)
	for _, c := range r.comments {
		if c.ParentID != nil && !c.Deleted {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	rows := []thread.Row{{Comment: r.project(root), Depth: 0}}
	frontier := []int64{rootID}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []int64
		for _, id := range frontier {
			for _, c := range children[id] {
				rows = append(rows, thread.Row{Comment: r.project(c), Depth: depth})
				next = append(next, c.ID)
			}
		}
		frontier = next
	}
	return rows, nil
}

func (r *InMemoryRepository) Ping(context.Context) error { return nil }

func (r *InMemoryRepository) filter(keep func(domain.Comment) bool) []domain.Comment {
	var out []domain.Comment
	for _, c := range r.comments {
		if keep(c) {
			out = append(out, r.project(c))
		}
	}
	return out
}

// project attaches the author projection to a copy of c.
func (r *InMemoryRepository) project(c domain.Comment) domain.Comment {
	c.Author = &domain.Author{Username: r.users[c.AuthorID]}
	if c.ParentID != nil {
		pid := *c.ParentID
		c.ParentID = &pid
	}
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// after reports whether c sorts strictly after anchor in (created_at, id) order.
func after(c, anchor domain.Comment) bool {
	if !c.CreatedAt.Equal(anchor.CreatedAt) {
		return c.CreatedAt.After(anchor.CreatedAt)
	}
	return c.ID > anchor.ID
}

func sortByCreated(cs []domain.Comment) {
	sort.Slice(cs, func(i, j int) bool { return after(cs[j], cs[i]) })
}
