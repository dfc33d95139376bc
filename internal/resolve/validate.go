package resolve

import (
	"fmt"
	"strings"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/requirements"
)

// Validation is the pass/fail outcome of a validator.
type Validation struct {
	Valid      bool       `json:"valid"`
	Model      string     `json:"model,omitempty"`
	Variant    string     `json:"variant,omitempty"`
	Provenance Provenance `json:"provenance,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// CheckRequires applies a requirement's hard model gate. The gate passes
// when some available model's base name, taken after the last slash,
// equals or contains the required model. Comparison is case-sensitive.
func CheckRequires(req *requirements.Requirement, available []string) Validation {
	if req == nil || req.RequiresModel == "" {
		return Validation{Valid: true}
	}

	required := req.RequiresModel
	for _, id := range available {
		base := id
		if i := strings.LastIndex(id, "/"); i >= 0 {
			base = id[i+1:]
		}
		if base == required || strings.Contains(base, required) {
			return Validation{Valid: true}
		}
	}

	return Validation{
		Valid: false,
		Error: fmt.Sprintf("Required model %q not available in connected providers", required),
	}
}

// ValidateAgent gates an agent on its hard requirement and resolves it.
func (r *Resolver) ValidateAgent(name string, available []string, cfg *omo.Config) Validation {
	req, _ := r.tables().Agent(name)
	return r.validate("agent", name, req, available, cfg)
}

// ValidateCategory gates a category on its hard requirement and resolves it.
func (r *Resolver) ValidateCategory(name string, available []string, cfg *omo.Config) Validation {
	req, _ := r.tables().Category(name)
	return r.validate("category", name, req, available, cfg)
}

func (r *Resolver) validate(kind, name string, req *requirements.Requirement, available []string, cfg *omo.Config) Validation {
	if check := CheckRequires(req, available); !check.Valid {
		return check
	}

	result := r.Resolve(available, cfg, name, "")
	if result == nil {
		return Validation{
			Valid: false,
			Error: fmt.Sprintf("Could not resolve model for %s %q", kind, name),
		}
	}

	return Validation{
		Valid:      true,
		Model:      result.Model,
		Variant:    result.Variant,
		Provenance: result.Provenance,
	}
}

// ResolveVariant picks the variant to attach to a resolved model. An
// explicit variant on the name's own config block wins, then fallback, then
// the variant of the category the agent is tagged with.
func ResolveVariant(cfg *omo.Config, name, fallback string) string {
	if agent, ok := cfg.Agent(name); ok {
		if agent.Variant != "" {
			return agent.Variant
		}
	} else if category, ok := cfg.Category(name); ok && category.Variant != "" {
		return category.Variant
	}

	if fallback != "" {
		return fallback
	}

	if tagged := cfg.AgentCategory(name); tagged != "" {
		category, _ := cfg.Category(tagged)
		return category.Variant
	}
	return ""
}
