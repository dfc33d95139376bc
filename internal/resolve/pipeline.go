package resolve

import (
	"strings"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/requirements"
)

// Provenance records which tier produced a result.
type Provenance string

const (
	ProvenanceUIOverride       Provenance = "ui-override"
	ProvenanceUserConfig       Provenance = "user-config"
	ProvenanceCategoryDefault  Provenance = "category-default"
	ProvenanceProviderFallback Provenance = "provider-fallback"
	ProvenanceSystemDefault    Provenance = "system-default"
)

// Result is a resolved model. An empty Variant means none.
type Result struct {
	Model      string     `json:"model"`
	Variant    string     `json:"variant,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// SystemDefaultFunc returns the host's configured default model id, or "".
type SystemDefaultFunc func() string

// primaryAgents may take a model picked in the host UI.
var primaryAgents = []string{"sisyphus", "atlas"}

// IsPrimaryAgent reports whether name accepts a UI override.
func IsPrimaryAgent(name string) bool {
	for _, primary := range primaryAgents {
		if name == primary {
			return true
		}
	}
	return false
}

// Resolver runs the tiered resolution pipeline against a set of
// requirement tables.
type Resolver struct {
	// Tables defaults to requirements.Builtin when nil.
	Tables *requirements.Tables

	// SystemDefault is consulted by the last tier. Nil means unset.
	SystemDefault SystemDefaultFunc
}

// New creates a Resolver.
func New(tables *requirements.Tables, systemDefault SystemDefaultFunc) *Resolver {
	return &Resolver{Tables: tables, SystemDefault: systemDefault}
}

func (r *Resolver) tables() *requirements.Tables {
	if r == nil || r.Tables == nil {
		return requirements.Builtin()
	}
	return r.Tables
}

// request is the per-call state shared by the tiers.
type request struct {
	available  []string
	providers  []string
	cfg        *omo.Config
	name       string
	uiModel    string
	req        *requirements.Requirement
	isAgent    bool
	isCategory bool
}

// tier either resolves the request or returns nil to fall through.
type tier struct {
	name string
	run  func(r *Resolver, q *request) *Result
}

// pipeline is the precedence order for names found in a requirement table.
var pipeline = []tier{
	{name: "ui-override", run: uiOverrideTier},
	{name: "user-config", run: userConfigTier},
	{name: "category", run: categoryTier},
	{name: "fallback-chain", run: fallbackChainTier},
	{name: "system-default", run: systemDefaultTier},
}

// unknownPipeline handles names present in neither table.
var unknownPipeline = []tier{
	{name: "system-default", run: systemDefaultTier},
}

// TierNames lists the tiers in evaluation order.
func TierNames() []string {
	names := make([]string, 0, len(pipeline))
	for _, t := range pipeline {
		names = append(names, t.name)
	}
	return names
}

// Resolve picks a model for an agent or category name. uiModel is the model
// selected in the host UI and may be empty. A nil result means nothing is
// available.
func (r *Resolver) Resolve(available []string, cfg *omo.Config, name, uiModel string) *Result {
	req, isAgent, isCategory := r.tables().Lookup(name)
	q := &request{
		available:  available,
		providers:  ProvidersFrom(available),
		cfg:        cfg,
		name:       name,
		uiModel:    strings.TrimSpace(uiModel),
		req:        req,
		isAgent:    isAgent,
		isCategory: isCategory,
	}

	tiers := pipeline
	if !isAgent && !isCategory {
		tiers = unknownPipeline
	}
	return firstSuccess(r, q, tiers)
}

func firstSuccess(r *Resolver, q *request, tiers []tier) *Result {
	for _, t := range tiers {
		if result := t.run(r, q); result != nil {
			return result
		}
	}
	return nil
}

func uiOverrideTier(_ *Resolver, q *request) *Result {
	if !q.isAgent || !IsPrimaryAgent(q.name) || q.uiModel == "" {
		return nil
	}
	if model, ok := FuzzyMatch(q.available, q.uiModel); ok {
		return &Result{Model: model, Provenance: ProvenanceUIOverride}
	}
	return nil
}

func userConfigTier(_ *Resolver, q *request) *Result {
	var model, variant string
	if q.isCategory {
		block, _ := q.cfg.Category(q.name)
		model, variant = block.Model, block.Variant
	} else {
		block, _ := q.cfg.Agent(q.name)
		model, variant = block.Model, block.Variant
	}
	if model == "" {
		return nil
	}
	if match, ok := FuzzyMatch(q.available, model); ok {
		return &Result{Model: match, Variant: variant, Provenance: ProvenanceUserConfig}
	}
	return nil
}

func categoryTier(r *Resolver, q *request) *Result {
	if !q.isAgent {
		return nil
	}
	category := q.cfg.AgentCategory(q.name)
	if category == "" {
		return nil
	}
	categoryReq, ok := r.tables().Category(category)
	if !ok {
		return nil
	}

	if block, ok := q.cfg.Category(category); ok && block.Model != "" {
		if match, ok := FuzzyMatch(q.available, block.Model); ok {
			return &Result{Model: match, Variant: block.Variant, Provenance: ProvenanceCategoryDefault}
		}
	}
	return ResolveChain(q.available, categoryReq.FallbackChain, q.providers)
}

func fallbackChainTier(_ *Resolver, q *request) *Result {
	if q.req == nil {
		return nil
	}
	return ResolveChain(q.available, q.req.FallbackChain, q.providers)
}

func systemDefaultTier(r *Resolver, q *request) *Result {
	if r != nil && r.SystemDefault != nil {
		if def := strings.TrimSpace(r.SystemDefault()); def != "" {
			if match, ok := FuzzyMatch(q.available, def); ok {
				return &Result{Model: match, Provenance: ProvenanceSystemDefault}
			}
		}
	}
	if len(q.available) > 0 {
		return &Result{Model: q.available[0], Provenance: ProvenanceSystemDefault}
	}
	return nil
}

// ResolveChain walks a fallback chain and returns the first entry whose
// provider/model fuzzy-matches an available id. When providers is non-nil,
// providers outside it are skipped.
func ResolveChain(available []string, chain requirements.Chain, providers []string) *Result {
	var allowed map[string]struct{}
	if providers != nil {
		allowed = make(map[string]struct{}, len(providers))
		for _, p := range providers {
			allowed[p] = struct{}{}
		}
	}

	for _, entry := range chain {
		for _, provider := range entry.Providers {
			if allowed != nil {
				if _, ok := allowed[provider]; !ok {
					continue
				}
			}
			if match, ok := FuzzyMatch(available, provider+"/"+entry.Model); ok {
				return &Result{Model: match, Variant: entry.Variant, Provenance: ProvenanceProviderFallback}
			}
		}
	}
	return nil
}
