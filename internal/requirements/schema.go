package requirements

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// SchemaInfo is what the resolver cares about in an upstream config schema.
type SchemaInfo struct {
	// Overrides replaces built-in entries when the upstream payload ships
	// its own requirement tables. Nil when it does not.
	Overrides *Tables

	// KnownAgents and KnownCategories come from the schema property names.
	KnownAgents     []string
	KnownCategories []string
}

// FromSchema extracts requirement overrides and known names from an upstream
// schema document.
func FromSchema(data []byte) (*SchemaInfo, error) {
	if len(data) == 0 {
		return nil, errors.New("schema document is empty")
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.New("schema document is not valid JSON")
	}

	doc := gjson.ParseBytes(data)
	info := &SchemaInfo{
		KnownAgents:     propertyNames(doc, "properties.agents"),
		KnownCategories: propertyNames(doc, "properties.categories"),
	}

	agents := doc.Get("AGENT_MODEL_REQUIREMENTS")
	categories := doc.Get("CATEGORY_MODEL_REQUIREMENTS")
	if agents.Exists() || categories.Exists() {
		overrides := &Tables{
			Agents:     map[string]Requirement{},
			Categories: map[string]Requirement{},
		}
		if agents.Exists() {
			if err := json.Unmarshal([]byte(agents.Raw), &overrides.Agents); err != nil {
				return nil, fmt.Errorf("decode upstream agent requirements: %w", err)
			}
		}
		if categories.Exists() {
			if err := json.Unmarshal([]byte(categories.Raw), &overrides.Categories); err != nil {
				return nil, fmt.Errorf("decode upstream category requirements: %w", err)
			}
		}
		if err := overrides.Validate(); err != nil {
			return nil, err
		}
		info.Overrides = overrides
	}

	return info, nil
}

// Apply merges any upstream overrides onto base.
func (s *SchemaInfo) Apply(base *Tables) *Tables {
	if s == nil || s.Overrides == nil {
		return base
	}
	return Merge(base, s.Overrides)
}

func propertyNames(doc gjson.Result, path string) []string {
	node := doc.Get(path)
	if !node.Exists() {
		return nil
	}

	seen := map[string]struct{}{}
	node.Get("properties").ForEach(func(key, _ gjson.Result) bool {
		seen[key.String()] = struct{}{}
		return true
	})
	node.Get("propertyNames.enum").ForEach(func(_, value gjson.Result) bool {
		seen[value.String()] = struct{}{}
		return true
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
