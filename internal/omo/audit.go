package omo

import "sort"

// MissingAgent is a default agent absent from a config.
type MissingAgent struct {
	Name         string `json:"name"`
	DefaultModel string `json:"default_model"`
	Description  string `json:"description"`
}

// MissingMCP is a default MCP server absent from a config.
type MissingMCP struct {
	Name   string    `json:"name"`
	Config MCPConfig `json:"config"`
}

// ExtraAgent is a configured agent that is not a default.
type ExtraAgent struct {
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

// Issues lists differences between a config and Defaults.
type Issues struct {
	MissingAgents []MissingAgent `json:"missing_agents"`
	MissingMCPs   []MissingMCP   `json:"missing_mcps"`
	ExtraAgents   []ExtraAgent   `json:"extra_agents"`
	ExtraMCPs     []string       `json:"extra_mcps"`
}

// Empty reports whether there is nothing to fix or flag.
func (i *Issues) Empty() bool {
	return i == nil || (len(i.MissingAgents) == 0 && len(i.MissingMCPs) == 0 &&
		len(i.ExtraAgents) == 0 && len(i.ExtraMCPs) == 0)
}

// Audit compares cfg with Defaults. It returns nil when they agree.
func Audit(cfg *Config) *Issues {
	defaults := Defaults()
	if cfg == nil {
		cfg = &Config{}
	}

	issues := &Issues{}
	for _, name := range sortedNames(defaults.Agents) {
		if _, ok := cfg.Agents[name]; !ok {
			issues.MissingAgents = append(issues.MissingAgents, MissingAgent{
				Name:         name,
				DefaultModel: defaults.Agents[name].Model,
				Description:  Describe(name),
			})
		}
	}
	for _, name := range sortedNames(defaults.MCPs) {
		if _, ok := cfg.MCPs[name]; !ok {
			issues.MissingMCPs = append(issues.MissingMCPs, MissingMCP{Name: name, Config: defaults.MCPs[name]})
		}
	}
	for _, name := range sortedNames(cfg.Agents) {
		if _, ok := defaults.Agents[name]; !ok {
			issues.ExtraAgents = append(issues.ExtraAgents, ExtraAgent{Name: name, Model: cfg.Agents[name].Model})
		}
	}
	for _, name := range sortedNames(cfg.MCPs) {
		if _, ok := defaults.MCPs[name]; !ok {
			issues.ExtraMCPs = append(issues.ExtraMCPs, name)
		}
	}

	if issues.Empty() {
		return nil
	}
	return issues
}

// AddAllMissing writes every missing default agent and MCP into the
// document and returns how many entries were added.
func (d *Document) AddAllMissing(issues *Issues) (int, error) {
	if issues == nil {
		return 0, nil
	}
	added := 0
	for _, agent := range issues.MissingAgents {
		if err := d.SetAgentModel(agent.Name, agent.DefaultModel); err != nil {
			return added, err
		}
		added++
	}
	for _, mcp := range issues.MissingMCPs {
		if err := d.SetMCP(mcp.Name, mcp.Config); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
