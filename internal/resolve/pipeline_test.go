package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/requirements"
)

func chain(entries ...requirements.Entry) requirements.Requirement {
	return requirements.Requirement{FallbackChain: entries}
}

func entry(model, variant string, providers ...string) requirements.Entry {
	return requirements.Entry{Providers: providers, Model: model, Variant: variant}
}

func testTables() *requirements.Tables {
	gated := chain(entry("gpt-5.2-codex", "", "openai"))
	gated.RequiresModel = "gpt-5.2-codex"
	deep := chain(entry("gpt-5.2-codex", "medium", "openai"))
	deep.RequiresModel = "gpt-5.2-codex"

	return &requirements.Tables{
		Agents: map[string]requirements.Requirement{
			"sisyphus": chain(entry("claude-opus-4-5", "max", "anthropic")),
			"oracle":   chain(entry("gemini-3-flash", "high", "google")),
			"librarian": chain(
				entry("glm-4.7", "", "zai-coding-plan"),
				entry("claude-sonnet-4-5", "", "anthropic"),
			),
			"explore": chain(entry("gpt-5-nano", "", "opencode")),
			"shared":  chain(entry("gpt-5.2", "", "openai")),
			"gated":   gated,
			"ordered": chain(
				entry("m1", "", "a", "b"),
				entry("m2", "", "c"),
			),
		},
		Categories: map[string]requirements.Requirement{
			"quick":  chain(entry("claude-haiku-4-5", "", "anthropic")),
			"shared": chain(entry("gemini-3-flash", "", "google")),
			"deep":   deep,
		},
	}
}

var testModels = []string{
	"anthropic/claude-opus-4-5",
	"anthropic/claude-sonnet-4-5-20250101",
	"anthropic/claude-haiku-4-5",
	"openai/gpt-5.2",
	"google/gemini-3-flash",
	"opencode/gpt-5-nano",
}

func TestTierOrder(t *testing.T) {
	assert.Equal(t, []string{"ui-override", "user-config", "category", "fallback-chain", "system-default"}, TierNames())
}

func TestIsPrimaryAgent(t *testing.T) {
	assert.True(t, IsPrimaryAgent("sisyphus"))
	assert.True(t, IsPrimaryAgent("atlas"))
	assert.False(t, IsPrimaryAgent("oracle"))
	assert.False(t, IsPrimaryAgent("Sisyphus"))
}

func TestResolveUIOverride(t *testing.T) {
	r := New(testTables(), nil)

	t.Run("BeatsUserConfigAndChain", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"sisyphus": {Model: "openai/gpt-5.2"}}}
		result := r.Resolve(testModels, cfg, "sisyphus", "google/gemini-3-flash")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "google/gemini-3-flash", Provenance: ProvenanceUIOverride}, *result)
	})

	t.Run("IgnoredForNonPrimaryAgents", func(t *testing.T) {
		result := r.Resolve(testModels, nil, "oracle", "openai/gpt-5.2")
		require.NotNil(t, result)
		assert.Equal(t, "google/gemini-3-flash", result.Model)
		assert.Equal(t, ProvenanceProviderFallback, result.Provenance)
	})

	t.Run("UnmatchedFallsThrough", func(t *testing.T) {
		result := r.Resolve(testModels, nil, "sisyphus", "xai/grok-4")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "anthropic/claude-opus-4-5", Variant: "max", Provenance: ProvenanceProviderFallback}, *result)
	})
}

func TestResolveUserConfig(t *testing.T) {
	r := New(testTables(), nil)

	t.Run("BeatsFallbackChain", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"oracle": {Model: "openai/gpt-5.2"}}}
		result := r.Resolve(testModels, cfg, "oracle", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "openai/gpt-5.2", Provenance: ProvenanceUserConfig}, *result)
	})

	t.Run("CarriesVariantFromSameBlock", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"oracle": {Model: "openai/gpt-5.2", Variant: "xhigh"}}}
		result := r.Resolve(testModels, cfg, "oracle", "")
		require.NotNil(t, result)
		assert.Equal(t, "xhigh", result.Variant)
	})

	t.Run("UnmatchedFallsThrough", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"oracle": {Model: "xai/grok-4"}}}
		result := r.Resolve(testModels, cfg, "oracle", "")
		require.NotNil(t, result)
		assert.Equal(t, ProvenanceProviderFallback, result.Provenance)
	})

	t.Run("CategoryBlockWinsForCategoryKeys", func(t *testing.T) {
		cfg := &omo.Config{
			Agents:     map[string]omo.AgentConfig{"shared": {Model: "openai/gpt-5.2"}},
			Categories: map[string]omo.CategoryConfig{"shared": {Model: "google/gemini-3-flash", Variant: "low"}},
		}
		result := r.Resolve(testModels, cfg, "shared", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "google/gemini-3-flash", Variant: "low", Provenance: ProvenanceUserConfig}, *result)
	})
}

func TestResolveCategoryTier(t *testing.T) {
	r := New(testTables(), nil)

	t.Run("CategoryModelOverride", func(t *testing.T) {
		cfg := &omo.Config{
			Agents:     map[string]omo.AgentConfig{"explore": {Category: "quick"}},
			Categories: map[string]omo.CategoryConfig{"quick": {Model: "google/gemini-3-flash", Variant: "fast"}},
		}
		result := r.Resolve(testModels, cfg, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "google/gemini-3-flash", Variant: "fast", Provenance: ProvenanceCategoryDefault}, *result)
	})

	t.Run("CategoryChainBeforeOwnChain", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"explore": {Category: "quick"}}}
		result := r.Resolve(testModels, cfg, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "anthropic/claude-haiku-4-5", Provenance: ProvenanceProviderFallback}, *result)
	})

	t.Run("UnmatchedCategoryModelUsesCategoryChain", func(t *testing.T) {
		cfg := &omo.Config{
			Agents:     map[string]omo.AgentConfig{"explore": {Category: "quick"}},
			Categories: map[string]omo.CategoryConfig{"quick": {Model: "xai/grok"}},
		}
		result := r.Resolve(testModels, cfg, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, "anthropic/claude-haiku-4-5", result.Model)
		assert.Equal(t, ProvenanceProviderFallback, result.Provenance)
	})

	t.Run("UnknownCategoryIsIgnored", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"explore": {Category: "nope"}}}
		result := r.Resolve(testModels, cfg, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, "opencode/gpt-5-nano", result.Model)
	})

	t.Run("UserConfigStillWins", func(t *testing.T) {
		cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"explore": {Model: "openai/gpt-5.2", Category: "quick"}}}
		result := r.Resolve(testModels, cfg, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, ProvenanceUserConfig, result.Provenance)
	})
}

func TestResolveFallbackChainOrder(t *testing.T) {
	r := New(testTables(), nil)

	result := r.Resolve([]string{"c/m2"}, nil, "ordered", "")
	require.NotNil(t, result)
	assert.Equal(t, "c/m2", result.Model)
	assert.Equal(t, ProvenanceProviderFallback, result.Provenance)
}

func TestResolveSystemDefault(t *testing.T) {
	t.Run("GetterIsFuzzyMatched", func(t *testing.T) {
		r := New(testTables(), func() string { return "google/gemini-3-flash-preview" })
		result := r.Resolve(testModels, nil, "not-a-real-key", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "google/gemini-3-flash", Provenance: ProvenanceSystemDefault}, *result)
	})

	t.Run("UnmatchedGetterUsesFirstAvailable", func(t *testing.T) {
		r := New(testTables(), func() string { return "xai/grok-4" })
		result := r.Resolve(testModels, nil, "not-a-real-key", "")
		require.NotNil(t, result)
		assert.Equal(t, testModels[0], result.Model)
	})

	t.Run("UnknownKeyPassthrough", func(t *testing.T) {
		r := New(testTables(), nil)
		result := r.Resolve([]string{"a/b"}, nil, "not-a-real-key", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "a/b", Provenance: ProvenanceSystemDefault}, *result)
	})

	t.Run("UnknownKeySkipsUIOverride", func(t *testing.T) {
		r := New(&requirements.Tables{}, nil)
		result := r.Resolve([]string{"a/b", "c/d"}, nil, "sisyphus", "c/d")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "a/b", Provenance: ProvenanceSystemDefault}, *result)
	})

	t.Run("KnownKeyWithNothingInChain", func(t *testing.T) {
		r := New(testTables(), nil)
		result := r.Resolve([]string{"xai/grok-4"}, nil, "explore", "")
		require.NotNil(t, result)
		assert.Equal(t, Result{Model: "xai/grok-4", Provenance: ProvenanceSystemDefault}, *result)
	})
}

func TestResolveEmptyCatalog(t *testing.T) {
	assert.Nil(t, New(testTables(), nil).Resolve([]string{}, &omo.Config{}, "oracle", ""))
	assert.Nil(t, New(nil, nil).Resolve(nil, nil, "oracle", ""))
	assert.Nil(t, New(nil, func() string { return "openai/gpt-5.2" }).Resolve(nil, nil, "unknown", ""))
}

func TestResolveIsIdempotentAndLeavesInputsAlone(t *testing.T) {
	r := New(testTables(), nil)
	available := append([]string(nil), testModels...)
	cfg := &omo.Config{
		Agents:     map[string]omo.AgentConfig{"explore": {Category: "quick"}},
		Categories: map[string]omo.CategoryConfig{"quick": {Model: "google/gemini-3-flash"}},
	}
	before := cfg.Clone()

	first := r.Resolve(available, cfg, "explore", "")
	second := r.Resolve(available, cfg, "explore", "")
	assert.Equal(t, first, second)
	assert.Equal(t, testModels, available)
	assert.Equal(t, before, cfg)
}

func TestResolveLibrarianEndToEnd(t *testing.T) {
	available := []string{"anthropic/claude-sonnet-4-5-20250101"}
	want := Result{Model: "anthropic/claude-sonnet-4-5-20250101", Provenance: ProvenanceProviderFallback}

	result := New(testTables(), nil).Resolve(available, &omo.Config{}, "librarian", "")
	require.NotNil(t, result)
	assert.Equal(t, want, *result)

	result = New(nil, nil).Resolve(available, &omo.Config{}, "librarian", "")
	require.NotNil(t, result)
	assert.Equal(t, want, *result)
}

func TestCheckRequires(t *testing.T) {
	req := &requirements.Requirement{RequiresModel: "gpt-5.2-codex"}

	assert.True(t, CheckRequires(nil, nil).Valid)
	assert.True(t, CheckRequires(&requirements.Requirement{}, nil).Valid)

	failed := CheckRequires(req, []string{"openai/gpt-4"})
	assert.False(t, failed.Valid)
	assert.Equal(t, `Required model "gpt-5.2-codex" not available in connected providers`, failed.Error)

	assert.True(t, CheckRequires(req, []string{"openai/gpt-5.2-codex"}).Valid)
	assert.True(t, CheckRequires(req, []string{"github-copilot/gpt-5.2-codex-max"}).Valid)
	assert.True(t, CheckRequires(req, []string{"openrouter/openai/gpt-5.2-codex"}).Valid)
	assert.True(t, CheckRequires(req, []string{"gpt-5.2-codex"}).Valid)
	assert.False(t, CheckRequires(req, []string{"openai/GPT-5.2-CODEX"}).Valid)
}

func TestValidators(t *testing.T) {
	r := New(testTables(), nil)

	t.Run("AgentRequirementUnmet", func(t *testing.T) {
		v := r.ValidateAgent("gated", []string{"openai/gpt-4"}, nil)
		assert.False(t, v.Valid)
		assert.Contains(t, v.Error, `Required model "gpt-5.2-codex"`)
	})

	t.Run("AgentResolved", func(t *testing.T) {
		v := r.ValidateAgent("gated", []string{"openai/gpt-5.2-codex"}, nil)
		assert.Equal(t, Validation{Valid: true, Model: "openai/gpt-5.2-codex", Provenance: ProvenanceProviderFallback}, v)
	})

	t.Run("AgentUnresolvable", func(t *testing.T) {
		v := r.ValidateAgent("oracle", nil, nil)
		assert.Equal(t, Validation{Valid: false, Error: `Could not resolve model for agent "oracle"`}, v)
	})

	t.Run("CategoryRequirementUnmet", func(t *testing.T) {
		v := r.ValidateCategory("deep", testModels, nil)
		assert.False(t, v.Valid)
		assert.Contains(t, v.Error, "not available in connected providers")
	})

	t.Run("CategoryUnresolvable", func(t *testing.T) {
		v := r.ValidateCategory("quick", nil, nil)
		assert.Equal(t, `Could not resolve model for category "quick"`, v.Error)
	})

	t.Run("CategoryResolved", func(t *testing.T) {
		v := r.ValidateCategory("deep", []string{"openai/gpt-5.2-codex"}, nil)
		assert.True(t, v.Valid)
		assert.Equal(t, "medium", v.Variant)
	})
}

func TestResolveVariant(t *testing.T) {
	cases := []struct {
		name     string
		cfg      *omo.Config
		key      string
		fallback string
		want     string
	}{
		{
			name:     "AgentVariantWins",
			cfg:      &omo.Config{Agents: map[string]omo.AgentConfig{"oracle": {Variant: "high"}}},
			key:      "oracle",
			fallback: "low",
			want:     "high",
		},
		{
			name: "AgentBlockShadowsCategoryBlock",
			cfg: &omo.Config{
				Agents:     map[string]omo.AgentConfig{"shared": {Model: "a/b"}},
				Categories: map[string]omo.CategoryConfig{"shared": {Variant: "x"}},
			},
			key:      "shared",
			fallback: "low",
			want:     "low",
		},
		{
			name:     "CategoryBlock",
			cfg:      &omo.Config{Categories: map[string]omo.CategoryConfig{"quick": {Variant: "fast"}}},
			key:      "quick",
			fallback: "low",
			want:     "fast",
		},
		{
			name:     "Fallback",
			cfg:      &omo.Config{},
			key:      "oracle",
			fallback: "low",
			want:     "low",
		},
		{
			name: "TaggedCategory",
			cfg: &omo.Config{
				Agents:     map[string]omo.AgentConfig{"explore": {Category: "quick"}},
				Categories: map[string]omo.CategoryConfig{"quick": {Variant: "q"}},
			},
			key:  "explore",
			want: "q",
		},
		{
			name: "None",
			cfg:  &omo.Config{Agents: map[string]omo.AgentConfig{"explore": {Category: "quick"}}},
			key:  "explore",
			want: "",
		},
		{
			name:     "NilConfig",
			key:      "oracle",
			fallback: "max",
			want:     "max",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveVariant(tc.cfg, tc.key, tc.fallback))
		})
	}
}

func TestResolveAll(t *testing.T) {
	r := New(testTables(), nil)
	names := []string{"oracle", "quick", "nope", "gated"}

	reports, err := r.ResolveAll(context.Background(), testModels, nil, names, BatchOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, reports, len(names))

	for i, name := range names {
		assert.Equal(t, name, reports[i].Name)
	}

	assert.Equal(t, Report{Name: "oracle", Kind: KindAgent, Model: "google/gemini-3-flash", Variant: "high", Provenance: ProvenanceProviderFallback, Valid: true}, reports[0])
	assert.Equal(t, KindCategory, reports[1].Kind)
	assert.Equal(t, "anthropic/claude-haiku-4-5", reports[1].Model)
	assert.Equal(t, Report{Name: "nope", Kind: KindUnknown, Model: testModels[0], Provenance: ProvenanceSystemDefault, Valid: true}, reports[2])
	assert.False(t, reports[3].Valid)
	assert.Contains(t, reports[3].Error, "gpt-5.2-codex")
}

func TestResolveAllUIModelAndVariant(t *testing.T) {
	r := New(testTables(), nil)
	cfg := &omo.Config{Agents: map[string]omo.AgentConfig{"sisyphus": {Variant: "low"}}}

	reports, err := r.ResolveAll(context.Background(), testModels, cfg, []string{"sisyphus"}, BatchOptions{UIModel: "openai/gpt-5.2"})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "openai/gpt-5.2", reports[0].Model)
	assert.Equal(t, ProvenanceUIOverride, reports[0].Provenance)
	assert.Equal(t, "low", reports[0].Variant)
}

func TestResolveAllHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testTables(), nil).ResolveAll(ctx, testModels, nil, []string{"oracle", "quick"}, BatchOptions{})
	require.ErrorIs(t, err, context.Canceled)

	reports, err := New(testTables(), nil).ResolveAll(context.Background(), testModels, nil, nil, BatchOptions{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestReportUnresolvable(t *testing.T) {
	report := New(testTables(), nil).Report(nil, nil, "oracle", "")
	assert.False(t, report.Valid)
	assert.Equal(t, `Could not resolve model for agent "oracle"`, report.Error)
}

func TestNames(t *testing.T) {
	names := New(testTables(), nil).Names()
	assert.Equal(t, []string{"explore", "gated", "librarian", "oracle", "ordered", "shared", "sisyphus", "deep", "quick", "shared"}, names)
}

func TestCategoryHelpers(t *testing.T) {
	r := New(testTables(), nil)

	assert.True(t, r.IsValidCategory("quick"))
	assert.False(t, r.IsValidCategory("nope"))

	assert.Equal(t, "anthropic/claude-haiku-4-5", r.CategoryDefault(nil, "quick"))
	cfg := &omo.Config{Categories: map[string]omo.CategoryConfig{"quick": {Model: "openai/gpt-5-mini"}}}
	assert.Equal(t, "openai/gpt-5-mini", r.CategoryDefault(cfg, "quick"))
	assert.Empty(t, r.CategoryDefault(nil, "nope"))

	assert.Equal(t, "openai/gpt-5-mini", r.CategoryDefaultFor(cfg, "quick", []string{"openai"}))
	assert.Equal(t, "anthropic/claude-haiku-4-5", r.CategoryDefaultFor(cfg, "quick", []string{"anthropic"}))
	assert.Empty(t, r.CategoryDefaultFor(cfg, "quick", []string{"zzz"}))

	doc, err := omo.NewDocument(nil)
	require.NoError(t, err)
	require.NoError(t, r.ApplyCategory(doc, "explore", "quick"))
	assert.Equal(t, "quick", doc.Get("agents.explore.category").String())

	err = r.ApplyCategory(doc, "explore", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid category")
}
