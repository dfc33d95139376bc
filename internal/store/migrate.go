package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in store_meta by Migrate.
const SchemaVersion = "2"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS catalog_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		model_count INTEGER NOT NULL DEFAULT 0,
		fetched_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_catalog_cache_expires ON catalog_cache(expires_at);`,
	`CREATE TABLE IF NOT EXISTS schema_cache (
		source TEXT PRIMARY KEY,
		tag TEXT NOT NULL,
		url TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		downloaded_at INTEGER NOT NULL,
		schema_json TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	// checked_at arrived after the first schema_cache layout.
	if err := s.ensureColumn(ctx, "schema_cache", "checked_at", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		return err
	}

	return s.SetMeta(ctx, metaSchemaVersion, SchemaVersion)
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}

	return nil
}
