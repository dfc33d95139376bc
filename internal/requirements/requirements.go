// Package requirements holds the per-agent and per-category model fallback
// tables consumed by the resolver.
//
// Tables are lookup data: once built they are shared across resolutions and
// must not be modified. Use Merge to derive a new table set.
package requirements

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinYAML []byte

// Entry is one step of a fallback chain.
type Entry struct {
	Providers []string `yaml:"providers" json:"providers"`
	Model     string   `yaml:"model" json:"model"`
	Variant   string   `yaml:"variant,omitempty" json:"variant,omitempty"`
}

// Chain is tried top to bottom.
type Chain []Entry

// Requirement describes how a single agent or category picks its model.
type Requirement struct {
	FallbackChain Chain  `yaml:"fallback_chain" json:"fallbackChain"`
	RequiresModel string `yaml:"requires_model,omitempty" json:"requiresModel,omitempty"`
}

// Tables groups the agent and category requirement tables.
type Tables struct {
	Agents     map[string]Requirement `yaml:"agents" json:"agents"`
	Categories map[string]Requirement `yaml:"categories" json:"categories"`
}

var (
	builtinOnce   sync.Once
	builtinTables *Tables
	builtinErr    error
)

// Builtin returns the tables bundled with the binary.
func Builtin() *Tables {
	builtinOnce.Do(func() {
		builtinTables, builtinErr = Parse(builtinYAML)
	})
	if builtinErr != nil {
		// The embedded document is covered by tests; a failure here is a build defect.
		panic(fmt.Sprintf("requirements: invalid builtin tables: %v", builtinErr))
	}
	return builtinTables
}

// Parse decodes and validates a YAML requirements document.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode requirements: %w", err)
	}
	if t.Agents == nil {
		t.Agents = map[string]Requirement{}
	}
	if t.Categories == nil {
		t.Categories = map[string]Requirement{}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks that every chain entry names at least one provider and a model.
func (t *Tables) Validate() error {
	if t == nil {
		return errors.New("requirements tables are nil")
	}
	var problems []string
	check := func(kind string, table map[string]Requirement) {
		for _, name := range sortedKeys(table) {
			for i, entry := range table[name].FallbackChain {
				if len(entry.Providers) == 0 {
					problems = append(problems, fmt.Sprintf("%s %q entry %d has no providers", kind, name, i))
				}
				for _, p := range entry.Providers {
					if strings.TrimSpace(p) == "" {
						problems = append(problems, fmt.Sprintf("%s %q entry %d has an empty provider", kind, name, i))
						break
					}
				}
				if strings.TrimSpace(entry.Model) == "" {
					problems = append(problems, fmt.Sprintf("%s %q entry %d has no model", kind, name, i))
				}
			}
		}
	}
	check("agent", t.Agents)
	check("category", t.Categories)

	if len(problems) > 0 {
		return fmt.Errorf("invalid requirements: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Agent returns the requirement for an agent name.
func (t *Tables) Agent(name string) (*Requirement, bool) {
	if t == nil {
		return nil, false
	}
	req, ok := t.Agents[name]
	if !ok {
		return nil, false
	}
	return &req, true
}

// Category returns the requirement for a category name.
func (t *Tables) Category(name string) (*Requirement, bool) {
	if t == nil {
		return nil, false
	}
	req, ok := t.Categories[name]
	if !ok {
		return nil, false
	}
	return &req, true
}

// Lookup reports which tables contain name. The agent requirement wins when
// a name is present in both.
func (t *Tables) Lookup(name string) (req *Requirement, isAgent bool, isCategory bool) {
	agentReq, isAgent := t.Agent(name)
	categoryReq, isCategory := t.Category(name)
	switch {
	case isAgent:
		req = agentReq
	case isCategory:
		req = categoryReq
	}
	return req, isAgent, isCategory
}

// AgentNames lists agent keys in sorted order.
func (t *Tables) AgentNames() []string {
	if t == nil {
		return nil
	}
	return sortedKeys(t.Agents)
}

// CategoryNames lists category keys in sorted order.
func (t *Tables) CategoryNames() []string {
	if t == nil {
		return nil
	}
	return sortedKeys(t.Categories)
}

// Merge returns a new table set where entries from override replace
// same-named entries in base. Neither input is modified.
func Merge(base, override *Tables) *Tables {
	merged := &Tables{
		Agents:     map[string]Requirement{},
		Categories: map[string]Requirement{},
	}
	for _, src := range []*Tables{base, override} {
		if src == nil {
			continue
		}
		for name, req := range src.Agents {
			merged.Agents[name] = req
		}
		for name, req := range src.Categories {
			merged.Categories[name] = req
		}
	}
	return merged
}

func sortedKeys(m map[string]Requirement) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
