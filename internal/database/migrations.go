package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// migrations are applied in order and must never be edited once released
var migrations = []string{
	`CREATE TABLE profiles (
    owner_id TEXT PRIMARY KEY,
    display_name VARCHAR(50) NOT NULL DEFAULT '',
    description VARCHAR(200),
    subdomain VARCHAR(63),
    video_limit INTEGER NOT NULL DEFAULT 10 CHECK (video_limit >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE UNIQUE INDEX idx_profiles_subdomain ON profiles (subdomain)`,
	`CREATE TABLE video_entries (
    id UUID PRIMARY KEY,
    owner_id TEXT NOT NULL,
    source_url TEXT NOT NULL,
    title VARCHAR(50) NOT NULL,
    description VARCHAR(100),
    slug VARCHAR(50) NOT NULL,
    thumbnail_ref TEXT,
    transcript TEXT,
    position INTEGER NOT NULL CHECK (position >= 0),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT video_entries_owner_slug_key UNIQUE (owner_id, slug),
    CONSTRAINT video_entries_owner_position_key UNIQUE (owner_id, position) DEFERRABLE INITIALLY DEFERRED
)`,
	`CREATE INDEX idx_video_entries_owner_active ON video_entries (owner_id, is_active, position)`,
}

// Migrate applies the migrations missing from the migration table
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	rows, err := db.Pool.Query(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	missing, err := compareMigrations(migrations, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		err := db.ExecuteInTransaction(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, query); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO migration (query) VALUES ($1)`, query)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return nil, fmt.Errorf("not enough migrations: database has %d, binary knows %d", len(existing), len(wanted))
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// already applied
		default:
			return nil, fmt.Errorf("incompatible migration %d: %v", i, want)
		}
	}

	return needed, nil
}
