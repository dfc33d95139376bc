// Package catalog loads the live model catalog from the opencode CLI and
// ranks models for agent roles.
package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/agentcfg/agentcfg/internal/resolve"
)

// Cost is the per-million-token price.
type Cost struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Limit holds token limits.
type Limit struct {
	Context int `json:"context"`
	Output  int `json:"output"`
}

// Modalities lists supported content types.
type Modalities struct {
	Text  bool `json:"text"`
	Image bool `json:"image"`
	PDF   bool `json:"pdf"`
	Video bool `json:"video"`
	Audio bool `json:"audio"`
}

// Capabilities as reported by opencode.
type Capabilities struct {
	Reasoning   bool            `json:"reasoning"`
	ToolCall    bool            `json:"toolcall"`
	Interleaved json.RawMessage `json:"interleaved,omitempty"`
	Input       Modalities      `json:"input"`
	Output      Modalities      `json:"output"`
}

// Model is one catalog entry. ID is the fully-qualified "provider/model"
// id; ModelID is the provider's own id for it.
type Model struct {
	ID           string       `json:"id"`
	ModelID      string       `json:"modelID"`
	ProviderID   string       `json:"providerID,omitempty"`
	Name         string       `json:"name,omitempty"`
	Family       string       `json:"family,omitempty"`
	Cost         *Cost        `json:"cost,omitempty"`
	Limit        Limit        `json:"limit"`
	Capabilities Capabilities `json:"capabilities"`
}

// Provider returns ProviderID, or the id prefix when it is unset.
func (m Model) Provider() string {
	if m.ProviderID != "" {
		return m.ProviderID
	}
	provider, _ := resolve.SplitModelID(m.ID)
	return provider
}

// HasExtendedThinking reports interleaved reasoning output.
func (m Model) HasExtendedThinking() bool {
	raw := m.Capabilities.Interleaved
	if len(raw) == 0 {
		return false
	}
	parsed := gjson.ParseBytes(raw)
	return parsed.IsObject() && parsed.Get("field").String() != ""
}

var fastPatterns = []string{"flash", "fast", "mini", "lite", "haiku", "instant"}

// IsFast reports whether a model is a low-latency or low-cost tier.
func (m Model) IsFast() bool {
	name := strings.ToLower(m.Name)
	id := strings.ToLower(m.ID)
	family := strings.ToLower(m.Family)
	for _, pattern := range fastPatterns {
		if strings.Contains(name, pattern) || strings.Contains(id, pattern) || strings.Contains(family, pattern) {
			return true
		}
	}
	if m.Cost != nil {
		total := m.Cost.Input + m.Cost.Output
		if total > 0 && total < 5 {
			return true
		}
	}
	return false
}

// Snapshot is a loaded catalog.
type Snapshot struct {
	Models    []Model  `json:"models"`
	Providers []string `json:"providers"`
	FromCache bool     `json:"-"`
}

// NewSnapshot derives providers from models.
func NewSnapshot(models []Model) *Snapshot {
	return &Snapshot{Models: models, Providers: Providers(models)}
}

// IDs returns model ids in catalog order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Models))
	for _, m := range s.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// Find returns the model with the given id.
func (s *Snapshot) Find(id string) (Model, bool) {
	if s == nil {
		return Model{}, false
	}
	for _, m := range s.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Providers lists the distinct providers of models, sorted.
func Providers(models []Model) []string {
	seen := make(map[string]struct{}, len(models))
	for _, m := range models {
		if provider := m.Provider(); provider != "" {
			seen[provider] = struct{}{}
		}
	}
	providers := make([]string, 0, len(seen))
	for provider := range seen {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}
