package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentcfg/agentcfg/internal/catalog"
)

var _ catalog.Cache = (*Store)(nil)

// CatalogEntry describes one cached catalog snapshot.
type CatalogEntry struct {
	Key        string    `json:"key"`
	ModelCount int       `json:"model_count"`
	FetchedAt  time.Time `json:"fetched_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Expired    bool      `json:"expired"`
}

// GetCatalog returns the cached snapshot for key if it is still valid.
func (s *Store) GetCatalog(ctx context.Context, key string) (*catalog.Snapshot, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cache key is required")
	}

	var payload string
	row := s.DB.QueryRowContext(ctx, `
		SELECT payload
		FROM catalog_cache
		WHERE key = ? AND expires_at > ?
	`, key, s.now().Unix())
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached catalog: %w", err)
	}

	var snapshot catalog.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("decode cached catalog: %w", err)
	}
	return &snapshot, nil
}

// PutCatalog stores a snapshot with a TTL.
func (s *Store) PutCatalog(ctx context.Context, key string, snapshot *catalog.Snapshot, ttl time.Duration) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	if ttl <= 0 || snapshot == nil {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key is required")
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cached catalog: %w", err)
	}

	now := s.now()
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO catalog_cache (key, payload, model_count, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			model_count = excluded.model_count,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at
	`, key, string(payload), len(snapshot.Models), now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached catalog: %w", err)
	}
	return nil
}

// ListCatalogs reports every cached snapshot, expired ones included.
func (s *Store) ListCatalogs(ctx context.Context) ([]CatalogEntry, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT key, model_count, fetched_at, expires_at
		FROM catalog_cache
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("list cached catalogs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	now := s.now().Unix()
	entries := []CatalogEntry{}
	for rows.Next() {
		var (
			entry     CatalogEntry
			fetchedAt int64
			expiresAt int64
		)
		if err := rows.Scan(&entry.Key, &entry.ModelCount, &fetchedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan cached catalogs: %w", err)
		}
		entry.FetchedAt = time.Unix(fetchedAt, 0).UTC()
		entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
		entry.Expired = expiresAt <= now
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cached catalogs: %w", err)
	}
	return entries, nil
}

// ClearCatalogs removes cached snapshots. With expiredOnly only stale rows go.
func (s *Store) ClearCatalogs(ctx context.Context, expiredOnly bool) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM catalog_cache`
	args := []any{}
	if expiredOnly {
		query += ` WHERE expires_at <= ?`
		args = append(args, s.now().Unix())
	}

	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("clear cached catalogs: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear cached catalogs: %w", err)
	}
	return affected, nil
}
