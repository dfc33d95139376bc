package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const metaSchemaVersion = "schema_version"

// SetMeta stores a metadata key/value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("meta key is required")
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO store_meta (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("store meta: %w", err)
	}
	return nil
}

// GetMeta returns a metadata value, or "" when unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return "", err
	}

	var value string
	if err := s.DB.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, strings.TrimSpace(key)).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch meta: %w", err)
	}
	return value, nil
}

// Version returns the migrated store layout version.
func (s *Store) Version(ctx context.Context) (string, error) {
	return s.GetMeta(ctx, metaSchemaVersion)
}
