package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var DB *pgxpool.Pool

// Connect initializes the connection pool
func Connect(dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Try pinging to make sure it's valid
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	DB = pool

	return pool, nil
}

// ClosePool is for graceful shutdown
func ClosePool() {
	if DB != nil {
		DB.Close()
	}
}

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                     BIGSERIAL PRIMARY KEY,
		email                  TEXT NOT NULL UNIQUE,
		password               TEXT NOT NULL,
		reset_password_token   TEXT,
		reset_password_expires TIMESTAMPTZ,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS users_reset_password_token_idx ON users (reset_password_token)`,
	`CREATE TABLE IF NOT EXISTS cards (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT,
		oracle_text TEXT,
		mana_cost   TEXT,
		power       TEXT,
		toughness   TEXT,
		colors      JSONB,
		rarity      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS cards_name_idx ON cards (name)`,
	`CREATE INDEX IF NOT EXISTS cards_colors_idx ON cards USING GIN (colors)`,
}

// Migrate creates the tables the services need. Every statement is
// idempotent so it runs on each start-up.
func Migrate(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
