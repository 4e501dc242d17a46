package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// Migration is one forward-only schema step of a component
type Migration struct {
	Version     int
	Description string
	SQL         string
}

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		component VARCHAR(64) NOT NULL,
		version INT NOT NULL,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (component, version)
	)
`

// Migrate applies every migration of component newer than the recorded
// version. Each step runs in its own transaction together with its
// bookkeeping row.
func Migrate(ctx context.Context, db *sql.DB, component string, migrations []Migration) (int, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE component = $1`,
		component,
	).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s schema version: %w", component, err)
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		if err := applyMigration(ctx, db, component, m); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

func applyMigration(ctx context.Context, db *sql.DB, component string, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s/%d: %w", component, m.Version, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("migration %s/%d (%s) failed: %w", component, m.Version, m.Description, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (component, version, description) VALUES ($1, $2, $3)`,
		component, m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("failed to record migration %s/%d: %w", component, m.Version, err)
	}
	return tx.Commit()
}
