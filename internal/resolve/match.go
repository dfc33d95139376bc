// Package resolve decides which concrete model an agent or category uses.
//
// Resolution is a pure function of its inputs: the available model ids, the
// user's oh-my-opencode config, the requirement tables, and an optional UI
// selection. Nothing in this package performs I/O or mutates its inputs, so
// independent resolutions may run concurrently.
package resolve

import "strings"

// MatchRule names the fuzzy-match rule that accepted a candidate.
type MatchRule string

const (
	RuleExact        MatchRule = "exact"
	RuleNormalized   MatchRule = "normalized"
	RulePrefix       MatchRule = "prefix"
	RuleSubstring    MatchRule = "substring"
	RuleTokenOverlap MatchRule = "token-overlap"
)

// Match is a successful fuzzy match.
type Match struct {
	Model string
	Rule  MatchRule
}

// Normalize canonicalizes a bare model name so the same model published
// under slightly different names compares equal.
func Normalize(bare string) string {
	s := strings.ToLower(bare)
	s = strings.TrimPrefix(s, "antigravity-")
	s = strings.TrimSuffix(s, "-preview")
	s = strings.TrimSuffix(s, "-tee")
	return s
}

// SplitModelID splits a "provider/model" id on the first slash. An id with
// no slash, or nothing after it, is all base with an empty provider.
func SplitModelID(id string) (provider, base string) {
	p, b, ok := strings.Cut(id, "/")
	if !ok || b == "" {
		return "", id
	}
	return p, b
}

// FuzzyMatch returns the first available id that matches target.
func FuzzyMatch(available []string, target string) (string, bool) {
	m, ok := FindMatch(available, target)
	return m.Model, ok
}

// FindMatch is FuzzyMatch that also reports which rule matched.
//
// Candidates are scanned in order and the first one satisfying any rule
// wins. Only the token-overlap rule compares providers; the others match on
// base name alone, so a same-named model from another provider is accepted.
func FindMatch(available []string, target string) (Match, bool) {
	if strings.TrimSpace(target) == "" {
		return Match{}, false
	}

	targetProvider, targetBase := SplitModelID(strings.ToLower(target))
	targetNormalized := Normalize(targetBase)
	var targetTokens map[string]struct{}

	for _, candidate := range available {
		if candidate == "" {
			continue
		}
		provider, base := SplitModelID(strings.ToLower(candidate))

		if base == targetBase {
			return Match{Model: candidate, Rule: RuleExact}, true
		}

		normalized := Normalize(base)
		if normalized == targetNormalized {
			return Match{Model: candidate, Rule: RuleNormalized}, true
		}

		if strings.HasPrefix(base, targetBase) || strings.HasPrefix(targetBase, base) {
			return Match{Model: candidate, Rule: RulePrefix}, true
		}

		if strings.Contains(base, targetBase) || strings.Contains(targetBase, base) {
			return Match{Model: candidate, Rule: RuleSubstring}, true
		}

		if provider != targetProvider {
			continue
		}
		if targetTokens == nil {
			targetTokens = tokenSet(targetNormalized)
		}
		if sharedTokens(tokenSet(normalized), targetTokens) >= 2 {
			return Match{Model: candidate, Rule: RuleTokenOverlap}, true
		}
	}

	return Match{}, false
}

// tokenSet splits a normalized name on '-' and '.' keeping tokens longer
// than two characters.
func tokenSet(name string) map[string]struct{} {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '.'
	})
	set := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if len(part) > 2 {
			set[part] = struct{}{}
		}
	}
	return set
}

func sharedTokens(a, b map[string]struct{}) int {
	n := 0
	for token := range a {
		if _, ok := b[token]; ok {
			n++
		}
	}
	return n
}

// ProvidersFrom derives the provider set from available model ids, keeping
// first-seen order.
func ProvidersFrom(available []string) []string {
	seen := make(map[string]struct{}, len(available))
	providers := make([]string, 0)
	for _, id := range available {
		provider, _ := SplitModelID(id)
		if provider == "" {
			continue
		}
		if _, ok := seen[provider]; ok {
			continue
		}
		seen[provider] = struct{}{}
		providers = append(providers, provider)
	}
	return providers
}
