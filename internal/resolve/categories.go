package resolve

import (
	"fmt"

	"github.com/agentcfg/agentcfg/internal/omo"
)

// IsValidCategory reports whether category has a requirement entry.
func (r *Resolver) IsValidCategory(category string) bool {
	_, ok := r.tables().Category(category)
	return ok
}

// CategoryDefault returns the configured model for a category, falling back
// to the first provider/model of its chain. It ignores availability.
func (r *Resolver) CategoryDefault(cfg *omo.Config, category string) string {
	if block, ok := cfg.Category(category); ok && block.Model != "" {
		return block.Model
	}
	req, ok := r.tables().Category(category)
	if !ok || len(req.FallbackChain) == 0 {
		return ""
	}
	first := req.FallbackChain[0]
	if len(first.Providers) == 0 {
		return ""
	}
	return first.Providers[0] + "/" + first.Model
}

// CategoryDefaultFor is CategoryDefault restricted to the given providers.
func (r *Resolver) CategoryDefaultFor(cfg *omo.Config, category string, providers []string) string {
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[p] = struct{}{}
	}

	if block, ok := cfg.Category(category); ok && block.Model != "" {
		provider, _ := SplitModelID(block.Model)
		if _, ok := allowed[provider]; ok {
			return block.Model
		}
	}

	req, ok := r.tables().Category(category)
	if !ok {
		return ""
	}
	for _, entry := range req.FallbackChain {
		for _, provider := range entry.Providers {
			if _, ok := allowed[provider]; ok {
				return provider + "/" + entry.Model
			}
		}
	}
	return ""
}

// ApplyCategory tags agent with category in doc.
func (r *Resolver) ApplyCategory(doc *omo.Document, agent, category string) error {
	if !r.IsValidCategory(category) {
		return fmt.Errorf("invalid category: %s", category)
	}
	return doc.SetAgentCategory(agent, category)
}
