package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentcfg/agentcfg/internal/omo"
)

// DefaultMinContext applies to profiles without a minimum.
const DefaultMinContext = 32000

// Scored pairs a model with its recommendation score.
type Scored struct {
	Model Model `json:"model"`
	Score int   `json:"score"`
}

// Score rates how well a model fits an agent's profile. Agents without a
// profile score zero. Earlier entries in preferred providers earn more.
func Score(model Model, agent string, preferredProviders []string) int {
	profile, ok := omo.AgentProfiles[agent]
	if !ok {
		return 0
	}

	score := 0
	caps := model.Capabilities
	context := model.Limit.Context
	minContext := profile.MinContext
	if minContext <= 0 {
		minContext = DefaultMinContext
	}

	if context >= minContext {
		score += 10
		ratio := math.Min(float64(context)/float64(minContext), 4)
		score += int(math.Floor((ratio - 1) * 3.33))
	} else {
		deficit := float64(minContext-context) / float64(minContext)
		score -= int(math.Floor(deficit * 20))
	}

	for _, trait := range profile.Preferred {
		switch trait {
		case omo.TraitReasoning:
			if caps.Reasoning || model.HasExtendedThinking() {
				score += 15
			}
		case omo.TraitThinking:
			if model.HasExtendedThinking() {
				score += 12
			} else if strings.Contains(strings.ToLower(model.Name), "thinking") ||
				strings.Contains(strings.ToLower(model.ID), "thinking") {
				score += 10
			}
		case omo.TraitLargeContext:
			switch {
			case context >= 500000:
				score += 12
			case context >= 200000:
				score += 8
			case context >= 128000:
				score += 4
			}
		case omo.TraitMultimodal:
			switch {
			case caps.Input.Image && caps.Input.PDF:
				score += 15
			case caps.Input.Image || caps.Input.PDF:
				score += 10
			}
			if caps.Input.Video {
				score += 3
			}
		case omo.TraitImageInput:
			if caps.Input.Image {
				score += 12
			}
		case omo.TraitPDFInput:
			if caps.Input.PDF {
				score += 8
			}
		case omo.TraitFast:
			if model.IsFast() {
				score += 10
			}
		case omo.TraitTextOutput:
			if caps.Output.Text {
				score += 5
			}
		}
	}

	provider := model.Provider()
	for i, preferred := range preferredProviders {
		if preferred == provider {
			score += (len(preferredProviders) - i) * 5
			break
		}
	}

	return score
}

// Recommend returns the top models for an agent, best first. Ties keep
// catalog order. A non-positive limit returns all models.
func Recommend(models []Model, agent string, preferredProviders []string, limit int) []Scored {
	scored := make([]Scored, 0, len(models))
	for _, m := range models {
		scored = append(scored, Scored{Model: m, Score: Score(m, agent, preferredProviders)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Filter keeps models whose id matches any glob pattern (doublestar syntax,
// e.g. "anthropic/*" or "**/*flash*") and whose provider is listed. Empty
// patterns or providers match everything.
func Filter(models []Model, patterns []string, providers []string) ([]Model, error) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid model pattern %q", pattern)
		}
	}
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[strings.TrimSpace(p)] = struct{}{}
	}

	out := make([]Model, 0, len(models))
	for _, m := range models {
		if len(allowed) > 0 {
			if _, ok := allowed[m.Provider()]; !ok {
				continue
			}
		}
		if len(patterns) > 0 && !matchesAny(patterns, m.ID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func matchesAny(patterns []string, id string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, id); err == nil && ok {
			return true
		}
	}
	return false
}
