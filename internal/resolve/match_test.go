package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcfg/agentcfg/internal/requirements"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"gemini-3-pro", "gemini-3-pro"},
		{"Antigravity-Gemini-3-Pro-Preview", "gemini-3-pro"},
		{"glm-4.7-tee", "glm-4.7"},
		{"model-tee-preview", "model"},
		{"model-preview-tee", "model-preview"},
		{"x-antigravity-y", "x-antigravity-y"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestSplitModelID(t *testing.T) {
	cases := []struct {
		id       string
		provider string
		base     string
	}{
		{"openai/gpt-5.2", "openai", "gpt-5.2"},
		{"gpt-5", "", "gpt-5"},
		{"openrouter/openai/gpt-5", "openrouter", "openai/gpt-5"},
		{"openai/", "", "openai/"},
	}
	for _, tc := range cases {
		provider, base := SplitModelID(tc.id)
		assert.Equal(t, tc.provider, provider, tc.id)
		assert.Equal(t, tc.base, base, tc.id)
	}
}

func TestFindMatchCascade(t *testing.T) {
	cases := []struct {
		name      string
		available []string
		target    string
		want      string
		rule      MatchRule
	}{
		{"Exact", []string{"openai/gpt-5.2"}, "openai/gpt-5.2", "openai/gpt-5.2", RuleExact},
		{"ExactIgnoresCase", []string{"OpenAI/GPT-5.2"}, "openai/gpt-5.2", "OpenAI/GPT-5.2", RuleExact},
		{"Normalized", []string{"google/antigravity-gemini-3-pro-preview"}, "google/gemini-3-pro", "google/antigravity-gemini-3-pro-preview", RuleNormalized},
		{"PrefixCandidateLonger", []string{"anthropic/claude-opus-4-5-20251101"}, "anthropic/claude-opus-4-5", "anthropic/claude-opus-4-5-20251101", RulePrefix},
		{"PrefixTargetLonger", []string{"openai/gpt-5"}, "openai/gpt-5.2", "openai/gpt-5", RulePrefix},
		{"Substring", []string{"x/my-claude-opus-4-5-build"}, "x/claude-opus-4-5", "x/my-claude-opus-4-5-build", RuleSubstring},
		{"TokenOverlap", []string{"anthropic/claude-opus-4.5-20251101"}, "anthropic/claude-opus-4-5", "anthropic/claude-opus-4.5-20251101", RuleTokenOverlap},
		{"CandidateWithoutProvider", []string{"gpt-5.2"}, "openai/gpt-5.2", "gpt-5.2", RuleExact},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := FindMatch(tc.available, tc.target)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Model)
			assert.Equal(t, tc.rule, m.Rule)

			model, ok := FuzzyMatch(tc.available, tc.target)
			require.True(t, ok)
			assert.Equal(t, tc.want, model)
		})
	}
}

func TestFindMatchNoHit(t *testing.T) {
	cases := []struct {
		name      string
		available []string
		target    string
	}{
		{"Unrelated", []string{"openai/gpt-4"}, "anthropic/claude"},
		{"TokenOverlapNeedsSameProvider", []string{"openrouter/claude-opus-4.5-20251101"}, "anthropic/claude-opus-4-5"},
		{"TokenOverlapNeedsTwoLongTokens", []string{"anthropic/claude-4.5-x"}, "anthropic/claude-opus-4-5"},
		{"EmptyCatalog", nil, "openai/gpt-5.2"},
		{"BlankTarget", []string{"openai/gpt-5.2"}, "  "},
		{"EmptyCandidate", []string{""}, "openai/gpt-5.2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			model, ok := FuzzyMatch(tc.available, tc.target)
			assert.False(t, ok)
			assert.Empty(t, model)
		})
	}
}

// Only the token-overlap rule compares providers. A same-named model from
// a different provider is accepted by the earlier rules.
func TestFindMatchIgnoresProviderBeforeTokenOverlap(t *testing.T) {
	m, ok := FindMatch([]string{"openrouter/claude-opus-4-5"}, "anthropic/claude-opus-4-5")
	require.True(t, ok)
	assert.Equal(t, "openrouter/claude-opus-4-5", m.Model)
	assert.Equal(t, RuleExact, m.Rule)

	m, ok = FindMatch([]string{"openrouter/claude-opus-4-5-20251101"}, "anthropic/claude-opus-4-5")
	require.True(t, ok)
	assert.Equal(t, RulePrefix, m.Rule)
}

func TestFindMatchScanOrderBeatsRuleStrength(t *testing.T) {
	available := []string{"a/gpt-5.2-codex", "b/gpt-5.2"}
	m, ok := FindMatch(available, "b/gpt-5.2")
	require.True(t, ok)
	assert.Equal(t, "a/gpt-5.2-codex", m.Model)
	assert.Equal(t, RulePrefix, m.Rule)
}

func TestProvidersFrom(t *testing.T) {
	providers := ProvidersFrom([]string{"b/x", "a/y", "b/z", "nobase", "/m"})
	assert.Equal(t, []string{"b", "a"}, providers)
	assert.Empty(t, ProvidersFrom(nil))
}

func TestResolveChainRespectsOrderAndProviders(t *testing.T) {
	chain := requirements.Chain{
		{Providers: []string{"a", "b"}, Model: "m1"},
		{Providers: []string{"c"}, Model: "m2", Variant: "high"},
	}

	result := ResolveChain([]string{"a/m1", "c/m2"}, chain, []string{"c"})
	require.NotNil(t, result)
	assert.Equal(t, "c/m2", result.Model)
	assert.Equal(t, "high", result.Variant)
	assert.Equal(t, ProvenanceProviderFallback, result.Provenance)
}

func TestResolveChainWithoutProviderFilter(t *testing.T) {
	chain := requirements.Chain{{Providers: []string{"a"}, Model: "m1"}}

	result := ResolveChain([]string{"z/m1"}, chain, nil)
	require.NotNil(t, result)
	assert.Equal(t, "z/m1", result.Model)
	assert.Empty(t, result.Variant)

	assert.Nil(t, ResolveChain([]string{"z/m1"}, chain, []string{}))
	assert.Nil(t, ResolveChain(nil, chain, nil))
	assert.Nil(t, ResolveChain([]string{"z/m1"}, nil, nil))
}
