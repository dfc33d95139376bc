package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentcfg/agentcfg/internal/upstream"
)

var _ upstream.Cache = (*Store)(nil)

// GetSchema returns the cached upstream schema for source ("owner/repo").
func (s *Store) GetSchema(ctx context.Context, source string) (*upstream.Record, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("schema source is required")
	}

	var (
		record       upstream.Record
		downloadedAt int64
		checkedAt    int64
		schemaJSON   string
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT source, tag, url, sha256, downloaded_at, checked_at, schema_json
		FROM schema_cache
		WHERE source = ?
	`, source)
	if err := row.Scan(&record.Source, &record.Tag, &record.URL, &record.SHA256, &downloadedAt, &checkedAt, &schemaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached schema: %w", err)
	}

	record.DownloadedAt = time.Unix(downloadedAt, 0).UTC()
	record.CheckedAt = time.Unix(checkedAt, 0).UTC()
	record.Schema = json.RawMessage(schemaJSON)
	return &record, nil
}

// PutSchema upserts a schema record.
func (s *Store) PutSchema(ctx context.Context, record *upstream.Record) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	if record == nil {
		return errors.New("schema record is required")
	}
	source := strings.TrimSpace(record.Source)
	if source == "" {
		return errors.New("schema source is required")
	}
	if !json.Valid(record.Schema) {
		return errors.New("schema payload is not valid JSON")
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO schema_cache (source, tag, url, sha256, downloaded_at, checked_at, schema_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			tag = excluded.tag,
			url = excluded.url,
			sha256 = excluded.sha256,
			downloaded_at = excluded.downloaded_at,
			checked_at = excluded.checked_at,
			schema_json = excluded.schema_json
	`, source, record.Tag, record.URL, record.SHA256, record.DownloadedAt.Unix(), record.CheckedAt.Unix(), string(record.Schema))
	if err != nil {
		return fmt.Errorf("store cached schema: %w", err)
	}
	return nil
}
