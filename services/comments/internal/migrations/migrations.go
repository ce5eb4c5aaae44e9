// Package migrations applies the embedded schema with goose.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

const dir = "sql"

// Up applies every pending migration over a database/sql handle borrowed
// from pool.
func Up(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	src, err := Source()
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, src)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", zap.String("source", r.Source.Path), zap.Duration("took", r.Duration))
	}
	log.Info("migrations applied successfully", zap.Int("count", len(results)))
	return nil
}

// Source is the migration directory as goose expects it.
func Source() (fs.FS, error) {
	return fs.Sub(files, dir)
}
