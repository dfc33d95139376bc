package omo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

var prettyOptions = &pretty.Options{Width: 80, Indent: "  "}

// Document is an oh-my-opencode config held as raw JSON. Edits go through
// sjson so keys this tool does not model survive a round trip.
type Document struct {
	raw []byte
}

// NewDocument wraps raw JSON. Empty input yields an empty object.
func NewDocument(raw []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Document{raw: []byte("{}")}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, errors.New("oh-my-opencode config is not valid JSON")
	}
	if !gjson.ParseBytes(trimmed).IsObject() {
		return nil, errors.New("oh-my-opencode config must be a JSON object")
	}
	return &Document{raw: append([]byte(nil), trimmed...)}, nil
}

// FromConfig renders a typed config as a document.
func FromConfig(cfg *Config) (*Document, error) {
	raw, err := marshalConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewDocument(raw)
}

// ReadFile loads a document from disk. The returned error wraps
// fs.ErrNotExist when the file is missing.
func ReadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from resolved config paths
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := NewDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Bytes returns the document indented for writing.
func (d *Document) Bytes() []byte {
	if d == nil {
		return []byte("{}\n")
	}
	return pretty.PrettyOptions(d.raw, prettyOptions)
}

// Raw returns the compact document as stored.
func (d *Document) Raw() []byte {
	if d == nil {
		return []byte("{}")
	}
	return append([]byte(nil), d.raw...)
}

// Config decodes the typed view.
func (d *Document) Config() (*Config, error) {
	if d == nil {
		return &Config{}, nil
	}
	return Parse(d.raw)
}

// Get reads a value by gjson path.
func (d *Document) Get(path string) gjson.Result {
	if d == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(d.raw, path)
}

// SetAgentModel assigns a model to an agent.
func (d *Document) SetAgentModel(agent, model string) error {
	return d.set(joinPath("agents", agent, "model"), model)
}

// SetAgentVariant assigns a variant to an agent. An empty variant removes it.
func (d *Document) SetAgentVariant(agent, variant string) error {
	path := joinPath("agents", agent, "variant")
	if variant == "" {
		return d.delete(path)
	}
	return d.set(path, variant)
}

// SetAgentCategory tags an agent with a category. An empty category
// removes the tag.
func (d *Document) SetAgentCategory(agent, category string) error {
	path := joinPath("agents", agent, "category")
	if category == "" {
		return d.delete(path)
	}
	return d.set(path, category)
}

// SetCategoryModel assigns a model to a category.
func (d *Document) SetCategoryModel(category, model string) error {
	return d.set(joinPath("categories", category, "model"), model)
}

// SetCategoryVariant assigns a variant to a category. An empty variant
// removes it.
func (d *Document) SetCategoryVariant(category, variant string) error {
	path := joinPath("categories", category, "variant")
	if variant == "" {
		return d.delete(path)
	}
	return d.set(path, variant)
}

// SetMCP installs an MCP server entry.
func (d *Document) SetMCP(name string, mcp MCPConfig) error {
	return d.set(joinPath("mcps", name), mcp)
}

// ClearAgent removes an agent block entirely.
func (d *Document) ClearAgent(agent string) error {
	return d.delete(joinPath("agents", agent))
}

// SetMigrationMarker records the categories migration date.
func (d *Document) SetMigrationMarker(date string) error {
	return d.set(joinPath("meta", "migratedToCategories"), date)
}

func (d *Document) set(path string, value any) error {
	if d == nil {
		return errors.New("document is nil")
	}
	updated, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	d.raw = updated
	return nil
}

func (d *Document) delete(path string) error {
	if d == nil {
		return errors.New("document is nil")
	}
	if !gjson.GetBytes(d.raw, path).Exists() {
		return nil
	}
	updated, err := sjson.DeleteBytes(d.raw, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	d.raw = updated
	return nil
}

// joinPath builds a gjson path from literal keys.
func joinPath(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = escapeKey(part)
	}
	return strings.Join(escaped, ".")
}

func escapeKey(key string) string {
	if !strings.ContainsAny(key, `.*?\`) {
		return key
	}
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
