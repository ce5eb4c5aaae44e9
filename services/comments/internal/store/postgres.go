package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/thread"
)

// PostgresRepository persists comments in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by Postgres.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// selectComment is the column list scanned by scanComment, joined with the
// author projection.
const selectComment = `
SELECT c.id, c.body, c.author_id, c.parent_id, c.deleted, c.deleted_at, c.created_at, c.updated_at, u.username
FROM comments c
JOIN users u ON u.id = c.author_id`

const returningComment = `RETURNING id, body, author_id, parent_id, deleted, deleted_at, created_at, updated_at`

const projectReturned = `
SELECT c.id, c.body, c.author_id, c.parent_id, c.deleted, c.deleted_at, c.created_at, c.updated_at, u.username
FROM w c
JOIN users u ON u.id = c.author_id`

func (s *PostgresRepository) Insert(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	// FOR SHARE blocks on a concurrent delete of the parent and re-checks it.
	q := `
WITH w AS (
	INSERT INTO comments (body, author_id, parent_id)
	SELECT $1::text, $2::bigint, $3::bigint
	WHERE $3::bigint IS NULL
	   OR EXISTS (SELECT 1 FROM comments p WHERE p.id = $3::bigint AND NOT p.deleted FOR SHARE)
	` + returningComment + `
)` + projectReturned

	c, err := scanComment(s.pool.QueryRow(ctx, q, in.Body, in.AuthorID, in.ParentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, fmt.Errorf("parent %d: %w", derefID(in.ParentID), domain.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Comment{}, fmt.Errorf("author %d: %w", in.AuthorID, domain.ErrNotFound)
		}
		return domain.Comment{}, err
	}
	return c, nil
}

func (s *PostgresRepository) Get(ctx context.Context, id int64) (domain.Comment, error) {
	c, err := scanComment(s.pool.QueryRow(ctx, selectComment+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Comment{}, domain.ErrNotFound
	}
	return c, err
}

func (s *PostgresRepository) MarkDeleted(ctx context.Context, id, authorID int64, at time.Time) (bool, error) {
	const q = `UPDATE comments SET deleted = true, deleted_at = $3, updated_at = $3
	           WHERE id = $1 AND author_id = $2 AND NOT deleted`
	tag, err := s.pool.Exec(ctx, q, id, authorID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresRepository) ClearDeleted(ctx context.Context, id, authorID int64, cutoff, at time.Time) (domain.Comment, bool, error) {
	q := `
WITH w AS (
	UPDATE comments SET deleted = false, deleted_at = NULL, updated_at = $4
	WHERE id = $1 AND author_id = $2 AND deleted AND deleted_at >= $3
	` + returningComment + `
)` + projectReturned

	c, err := scanComment(s.pool.QueryRow(ctx, q, id, authorID, cutoff, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Comment{}, false, nil
		}
		return domain.Comment{}, false, err
	}
	return c, true, nil
}

func (s *PostgresRepository) ListTopLevel(ctx context.Context) ([]domain.Comment, error) {
	q := selectComment + `
WHERE c.parent_id IS NULL AND NOT c.deleted
ORDER BY c.created_at ASC, c.id ASC`
	return s.scanComments(ctx, q)
}

func (s *PostgresRepository) ListReplies(ctx context.Context, parentID int64, afterID *int64, limit int) ([]domain.Comment, error) {
	if afterID == nil {
		q := selectComment + `
WHERE c.parent_id = $1 AND NOT c.deleted
ORDER BY c.created_at ASC, c.id ASC
LIMIT $2`
		return s.scanComments(ctx, q, parentID, limit)
	}

	// The anchor may itself be deleted by now; tombstones are never removed,
	// so its position stays valid.
	var anchorAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT created_at FROM comments WHERE id = $1 AND parent_id = $2`,
		*afterID, parentID).Scan(&anchorAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidCursor
		}
		return nil, err
	}

	q := selectComment + `
WHERE c.parent_id = $1 AND NOT c.deleted
  AND (c.created_at, c.id) > ($3, $4)
ORDER BY c.created_at ASC, c.id ASC
LIMIT $2`
	return s.scanComments(ctx, q, parentID, limit, anchorAt, *afterID)
}

func (s *PostgresRepository) ListDeletedByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error) {
	q := selectComment + `
WHERE c.author_id = $1 AND c.deleted
ORDER BY c.deleted_at DESC, c.id DESC`
	return s.scanComments(ctx, q, authorID)
}

func (s *PostgresRepository) Subtree(ctx context.Context, rootID int64, maxDepth int) ([]thread.Row, error) {
	const q = `
WITH RECURSIVE subtree AS (
	SELECT c.id, c.body, c.author_id, c.parent_id, c.deleted, c.deleted_at, c.created_at, c.updated_at, 0 AS depth
	FROM comments c
	WHERE c.id = $1

	UNION ALL

	SELECT c.id, c.body, c.author_id, c.parent_id, c.deleted, c.deleted_at, c.created_at, c.updated_at, s.depth + 1
	FROM comments c
	JOIN subtree s ON c.parent_id = s.id
	WHERE s.depth < $2 AND NOT c.deleted
)
SELECT s.id, s.body, s.author_id, s.parent_id, s.deleted, s.deleted_at, s.created_at, s.updated_at, u.username, s.depth
FROM subtree s
JOIN users u ON u.id = s.author_id
ORDER BY s.depth ASC, s.created_at ASC, s.id ASC`

	rows, err := s.pool.Query(ctx, q, rootID, maxDepth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []thread.Row
	for rows.Next() {
		var r thread.Row
		c, err := scanComment(rows, &r.Depth)
		if err != nil {
			return nil, err
		}
		r.Comment = c
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresRepository) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresRepository) scanComments(ctx context.Context, q string, args ...any) ([]domain.Comment, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanComment reads the selectComment columns, then any extra destinations.
func scanComment(row pgx.Row, extra ...any) (domain.Comment, error) {
	var c domain.Comment
	var username string
	dest := append([]any{&c.ID, &c.Body, &c.AuthorID, &c.ParentID, &c.Deleted,
		&c.DeletedAt, &c.CreatedAt, &c.UpdatedAt, &username}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Comment{}, err
	}
	c.Author = &domain.Author{Username: username}
	return c, nil
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
