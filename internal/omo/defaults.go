package omo

import (
	"encoding/json"
	"fmt"
)

// Trait is a quality an agent profile prefers in a model.
type Trait string

const (
	TraitReasoning    Trait = "reasoning"
	TraitThinking     Trait = "thinking"
	TraitLargeContext Trait = "large_context"
	TraitFast         Trait = "fast"
	TraitMultimodal   Trait = "multimodal"
	TraitImageInput   Trait = "image_input"
	TraitPDFInput     Trait = "pdf_input"
	TraitTextOutput   Trait = "text_output"
)

// AgentProfile describes what an agent does and what it needs from a model.
type AgentProfile struct {
	Description string  `json:"description"`
	Preferred   []Trait `json:"preferred"`
	MinContext  int     `json:"min_context"`
}

// AgentProfiles drives recommendations and audit descriptions.
var AgentProfiles = map[string]AgentProfile{
	"oracle": {
		Description: "Architecture decisions, debugging, code review (GPT-5.2 class)",
		Preferred:   []Trait{TraitReasoning, TraitLargeContext},
		MinContext:  128000,
	},
	"sisyphus": {
		Description: "Primary orchestrator with extended thinking (Opus class)",
		Preferred:   []Trait{TraitReasoning, TraitThinking, TraitLargeContext},
		MinContext:  128000,
	},
	"librarian": {
		Description: "Multi-repo research, docs, GitHub examples (Sonnet class)",
		Preferred:   []Trait{TraitReasoning, TraitLargeContext},
		MinContext:  128000,
	},
	"explore": {
		Description: "Fast contextual grep for codebase exploration (Grok/Flash class)",
		Preferred:   []Trait{TraitFast, TraitLargeContext},
		MinContext:  64000,
	},
	"frontend-ui-ux-engineer": {
		Description: "UI/UX code generation with visual understanding (Gemini Pro class)",
		Preferred:   []Trait{TraitReasoning, TraitMultimodal, TraitImageInput},
		MinContext:  64000,
	},
	"document-writer": {
		Description: "Technical documentation and writing (Gemini Pro class)",
		Preferred:   []Trait{TraitReasoning, TraitTextOutput, TraitLargeContext},
		MinContext:  64000,
	},
	"multimodal-looker": {
		Description: "PDF/image analysis, visual content (Flash class)",
		Preferred:   []Trait{TraitMultimodal, TraitImageInput, TraitPDFInput, TraitFast},
		MinContext:  32000,
	},
}

// DefaultAgentDescription is used for agents without a profile.
const DefaultAgentDescription = "OmO built-in agent"

// Describe returns the profile description for an agent.
func Describe(agent string) string {
	if profile, ok := AgentProfiles[agent]; ok {
		return profile.Description
	}
	return DefaultAgentDescription
}

// Defaults returns the stock oh-my-opencode configuration.
func Defaults() *Config {
	enabled := true
	googleAuth := false
	return &Config{
		GoogleAuth: &googleAuth,
		Agents: map[string]AgentConfig{
			"oracle":                  {Model: "openai/gpt-5.2"},
			"sisyphus":                {Model: "anthropic/claude-opus-4-5"},
			"librarian":               {Model: "anthropic/claude-sonnet-4-5"},
			"explore":                 {Model: "opencode/grok-code"},
			"frontend-ui-ux-engineer": {Model: "google/gemini-3-pro-preview"},
			"document-writer":         {Model: "google/gemini-3-pro-preview"},
			"multimodal-looker":       {Model: "google/gemini-3-flash"},
		},
		MCPs: map[string]MCPConfig{
			"websearch_exa": {
				Type:    "remote",
				URL:     "https://mcp.exa.ai/mcp?tools=web_search_exa,get_code_context_exa,crawling_exa",
				Enabled: &enabled,
			},
			"grep_app": {
				Type: "remote",
				URL:  "https://mcp.grep.app",
			},
		},
	}
}

// DefaultDocument returns Defaults as a document.
func DefaultDocument() *Document {
	doc, err := FromConfig(Defaults())
	if err != nil {
		panic(fmt.Sprintf("omo: defaults do not encode: %v", err))
	}
	return doc
}

func marshalConfig(cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode oh-my-opencode config: %w", err)
	}
	return raw, nil
}
