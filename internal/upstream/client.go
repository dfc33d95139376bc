// Package upstream tracks the oh-my-opencode JSON schema published with each
// upstream release.
package upstream

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agentcfg/agentcfg/internal/requirements"
)

const (
	DefaultOwner   = "code-yeongyu"
	DefaultRepo    = "oh-my-opencode"
	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
	DefaultTTL     = 24 * time.Hour

	// SchemaAssetPath is the schema location inside the upstream repository.
	SchemaAssetPath = "assets/oh-my-opencode.schema.json"

	userAgent = "agentcfg"

	// maxSchemaBytes bounds the schema download.
	maxSchemaBytes = 8 << 20
)

// Record is a cached schema download.
type Record struct {
	Source       string          `json:"source"`
	Tag          string          `json:"tag"`
	URL          string          `json:"url"`
	SHA256       string          `json:"sha256"`
	DownloadedAt time.Time       `json:"downloaded_at"`
	CheckedAt    time.Time       `json:"checked_at"`
	Schema       json.RawMessage `json:"schema"`
}

// Cache persists schema records by source ("owner/repo").
type Cache interface {
	GetSchema(ctx context.Context, source string) (*Record, error)
	PutSchema(ctx context.Context, record *Record) error
}

// Result reports the outcome of Update.
type Result struct {
	Record *Record `json:"record"`
	// Updated is set when a schema with a new hash was stored.
	Updated bool `json:"updated"`
	// Skipped is set when the cached record was still within its TTL.
	Skipped bool `json:"skipped"`
}

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("request failed (%d) for %s", e.StatusCode, e.URL)
	if e.RetryAfter != "" {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	return msg
}

// ErrNoSchema is returned when nothing has been cached yet.
var ErrNoSchema = errors.New("no upstream schema cached; run `agentcfg schema update`")

// Client fetches the upstream schema.
type Client struct {
	HTTP    *http.Client
	Cache   Cache
	Owner   string
	Repo    string
	APIBase string
	RawBase string
	Token   string
	TTL     time.Duration
	Clock   func() time.Time
}

// Source is the "owner/repo" cache key.
func (c *Client) Source() string {
	return c.owner() + "/" + c.repo()
}

// LatestTag asks the GitHub API for the latest release tag.
func (c *Client) LatestTag(ctx context.Context) (string, error) {
	endpoint, err := joinURL(c.apiBase(), "repos", c.owner(), c.repo(), "releases", "latest")
	if err != nil {
		return "", err
	}
	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("failed to parse JSON from %s", endpoint)
	}
	tag := strings.TrimSpace(gjson.GetBytes(body, "tag_name").String())
	if tag == "" {
		return "", errors.New("latest release tag not found")
	}
	return tag, nil
}

// SchemaURL is the raw schema location at tag.
func (c *Client) SchemaURL(tag string) (string, error) {
	return joinURL(c.rawBase(), c.owner(), c.repo(), tag, SchemaAssetPath)
}

// Download fetches the schema at tag.
func (c *Client) Download(ctx context.Context, tag string) ([]byte, string, error) {
	schemaURL, err := c.SchemaURL(tag)
	if err != nil {
		return nil, "", err
	}
	body, err := c.get(ctx, schemaURL, "")
	if err != nil {
		return nil, schemaURL, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, schemaURL, fmt.Errorf("schema at %s is not a JSON object", schemaURL)
	}
	return body, schemaURL, nil
}

// Cached returns the stored record for this client's source.
func (c *Client) Cached(ctx context.Context) (*Record, error) {
	if c.Cache == nil {
		return nil, ErrNoSchema
	}
	record, err := c.Cache.GetSchema(ctx, c.Source())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoSchema
	}
	return record, nil
}

// Update refreshes the cached schema. Within the TTL the cached record is
// returned untouched unless force is set. A download whose hash matches the
// cache only bumps CheckedAt.
func (c *Client) Update(ctx context.Context, force bool) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := c.now()

	var cached *Record
	if c.Cache != nil {
		existing, err := c.Cache.GetSchema(ctx, c.Source())
		if err != nil {
			return nil, fmt.Errorf("read schema cache: %w", err)
		}
		cached = existing
	}
	if !force && cached != nil && now.Sub(cached.CheckedAt) < c.ttl() {
		return &Result{Record: cached, Skipped: true}, nil
	}

	tag, err := c.LatestTag(ctx)
	if err != nil {
		return nil, err
	}
	body, schemaURL, err := c.Download(ctx, tag)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])

	result := &Result{}
	if cached != nil && cached.SHA256 == hash {
		record := *cached
		record.Tag = tag
		record.URL = schemaURL
		record.CheckedAt = now
		result.Record = &record
	} else {
		result.Record = &Record{
			Source:       c.Source(),
			Tag:          tag,
			URL:          schemaURL,
			SHA256:       hash,
			DownloadedAt: now,
			CheckedAt:    now,
			Schema:       json.RawMessage(body),
		}
		result.Updated = true
	}

	if c.Cache != nil {
		if err := c.Cache.PutSchema(ctx, result.Record); err != nil {
			return nil, fmt.Errorf("write schema cache: %w", err)
		}
	}
	return result, nil
}

// Tables overlays the cached schema onto base. Without a usable cached
// schema it returns ErrNoSchema or the parse error; callers fall back to base.
func (c *Client) Tables(ctx context.Context, base *requirements.Tables) (*requirements.Tables, *requirements.SchemaInfo, error) {
	record, err := c.Cached(ctx)
	if err != nil {
		return base, nil, err
	}
	info, err := requirements.FromSchema(record.Schema)
	if err != nil {
		return base, nil, fmt.Errorf("cached schema %s: %w", record.Tag, err)
	}
	return info.Apply(base), info, nil
}

func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if token := strings.TrimSpace(c.Token); token != "" {
		req.Header.Set("Authorization", "token "+token)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}
	return body, nil
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

func (c *Client) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *Client) owner() string { return valueOr(c.Owner, DefaultOwner) }
func (c *Client) repo() string  { return valueOr(c.Repo, DefaultRepo) }

func (c *Client) apiBase() string { return valueOr(c.APIBase, DefaultAPIBase) }
func (c *Client) rawBase() string { return valueOr(c.RawBase, DefaultRawBase) }

func valueOr(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func joinURL(base string, elem ...string) (string, error) {
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return url.JoinPath(base, elem...)
}
