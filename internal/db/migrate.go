package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/taxdesk/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations through the existing pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		if err := gooseUp(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		if err := goose.DownContext(ctx, sqlDB, "."); err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
		return nil
	})
}

// Status logs the applied state of every embedded migration.
func Status(ctx context.Context, pool *pgxpool.Pool) error {
	return withGoose(pool, func(sqlDB *sql.DB) error {
		return goose.StatusContext(ctx, sqlDB, ".")
	})
}

func withGoose(pool *pgxpool.Pool, fn func(*sql.DB) error) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return fn(sqlDB)
}
