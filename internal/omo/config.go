// Package omo models the oh-my-opencode configuration document: the typed
// view the resolver consumes, key-preserving edits of the raw JSON, the
// built-in defaults, and the audit of a config against those defaults.
package omo

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AgentConfig is one entry under "agents".
type AgentConfig struct {
	Model    string `json:"model,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Category string `json:"category,omitempty"`
}

// CategoryConfig is one entry under "categories".
type CategoryConfig struct {
	Model   string `json:"model,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// MCPConfig is one entry under "mcps".
type MCPConfig struct {
	Type    string `json:"type,omitempty"`
	URL     string `json:"url,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Meta holds bookkeeping written by this tool.
type Meta struct {
	MigratedToCategories string `json:"migratedToCategories,omitempty"`
}

// Config is the typed view of an oh-my-opencode document. Every field is
// optional; absent maps behave as empty.
type Config struct {
	Schema             string                    `json:"$schema,omitempty"`
	GoogleAuth         *bool                     `json:"google_auth,omitempty"`
	Agents             map[string]AgentConfig    `json:"agents,omitempty"`
	Categories         map[string]CategoryConfig `json:"categories,omitempty"`
	MCPs               map[string]MCPConfig      `json:"mcps,omitempty"`
	PreferredProviders []string                  `json:"preferred_providers,omitempty"`
	Meta               *Meta                     `json:"meta,omitempty"`
}

// Parse decodes and validates a config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return &cfg, nil
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode oh-my-opencode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects shapes the resolver cannot use.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	for name := range c.Agents {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("agents: empty agent name")
		}
	}
	for name := range c.Categories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("categories: empty category name")
		}
	}
	for name, mcp := range c.MCPs {
		if mcp.URL == "" && mcp.Type == "remote" {
			return fmt.Errorf("mcps.%s: remote server requires a url", name)
		}
	}
	return nil
}

// Agent returns the agent block for name.
func (c *Config) Agent(name string) (AgentConfig, bool) {
	if c == nil || c.Agents == nil {
		return AgentConfig{}, false
	}
	agent, ok := c.Agents[name]
	return agent, ok
}

// Category returns the category block for name.
func (c *Config) Category(name string) (CategoryConfig, bool) {
	if c == nil || c.Categories == nil {
		return CategoryConfig{}, false
	}
	category, ok := c.Categories[name]
	return category, ok
}

// AgentCategory returns the category an agent is tagged with, if any.
func (c *Config) AgentCategory(name string) string {
	agent, _ := c.Agent(name)
	return agent.Category
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}
	out := *c
	if c.GoogleAuth != nil {
		v := *c.GoogleAuth
		out.GoogleAuth = &v
	}
	if c.Agents != nil {
		out.Agents = make(map[string]AgentConfig, len(c.Agents))
		for k, v := range c.Agents {
			out.Agents[k] = v
		}
	}
	if c.Categories != nil {
		out.Categories = make(map[string]CategoryConfig, len(c.Categories))
		for k, v := range c.Categories {
			out.Categories[k] = v
		}
	}
	if c.MCPs != nil {
		out.MCPs = make(map[string]MCPConfig, len(c.MCPs))
		for k, v := range c.MCPs {
			if v.Enabled != nil {
				enabled := *v.Enabled
				v.Enabled = &enabled
			}
			out.MCPs[k] = v
		}
	}
	if c.PreferredProviders != nil {
		out.PreferredProviders = append([]string(nil), c.PreferredProviders...)
	}
	if c.Meta != nil {
		meta := *c.Meta
		out.Meta = &meta
	}
	return &out
}
