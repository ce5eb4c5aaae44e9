// Command seed fills a development database with fake users and a random
// comment forest, then prints a bearer token per user.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/comment-platform/internal/platform/auth"
	"github.com/example/comment-platform/internal/platform/config"
	"github.com/example/comment-platform/internal/platform/db"
	"github.com/example/comment-platform/internal/platform/logging"
	"github.com/example/comment-platform/services/comments/internal/domain"
	"github.com/example/comment-platform/services/comments/internal/migrations"
	"github.com/example/comment-platform/services/comments/internal/store"
)

func main() {
	log, err := logging.New("comments-seed", config.String("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal("postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Up(ctx, pool, log); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	gofakeit.Seed(time.Now().UnixNano())

	users, err := seedUsers(ctx, pool, config.Int("SEED_USERS", 10))
	if err != nil {
		log.Fatal("seed users", zap.Error(err))
	}
	repo := store.NewPostgresRepository(pool)
	n, err := seedComments(ctx, repo, users, config.Int("SEED_ROOTS", 20), config.Int("SEED_REPLIES", 200))
	if err != nil {
		log.Fatal("seed comments", zap.Error(err))
	}
	log.Info("seeded", zap.Int("users", len(users)), zap.Int("comments", n))

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return
	}
	verifier := auth.JWTVerifier{Secret: []byte(secret)}
	for _, uid := range users {
		tok, err := verifier.Issue(uid, 24*time.Hour)
		if err != nil {
			log.Fatal("issue token", zap.Error(err))
		}
		fmt.Printf("user %d: %s\n", uid, tok)
	}
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool, n int) ([]int64, error) {
	const q = `INSERT INTO users (username) VALUES ($1)
	           ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
	           RETURNING id`
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		var id int64
		if err := pool.QueryRow(ctx, q, gofakeit.Username()).Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// seedComments creates roots top-level comments, then attaches replies to
// random existing comments. About one in ten comments is soft-deleted; replies
// are never attached to a deleted comment.
func seedComments(ctx context.Context, repo *store.PostgresRepository, users []int64, roots, replies int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	var live []domain.Comment
	created := 0

	insert := func(parentID *int64) error {
		author := users[gofakeit.Number(0, len(users)-1)]
		c, err := repo.Insert(ctx, domain.NewComment{
			Body:     gofakeit.Sentence(gofakeit.Number(3, 30)),
			ParentID: parentID,
			AuthorID: author,
		})
		if err != nil {
			return err
		}
		created++
		if gofakeit.Number(1, 10) == 1 {
			_, err := repo.MarkDeleted(ctx, c.ID, c.AuthorID, time.Now().UTC())
			return err
		}
		live = append(live, c)
		return nil
	}

	for i := 0; i < roots; i++ {
		if err := insert(nil); err != nil {
			return created, err
		}
	}
	for i := 0; i < replies && len(live) > 0; i++ {
		parent := live[gofakeit.Number(0, len(live)-1)].ID
		if err := insert(&parent); err != nil {
			return created, err
		}
	}
	return created, nil
}
