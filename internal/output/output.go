package output

import (
	"fmt"
	"strings"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Formatter renders command results.
type Formatter interface {
	FormatReports(reports []resolve.Report) (string, error)
	FormatModels(models []catalog.Model) (string, error)
	FormatRecommendations(agent string, scored []catalog.Scored) (string, error)
	FormatAudit(issues *omo.Issues) (string, error)
	FormatSchema(record *upstream.Record) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// ReportSummary counts valid and failed reports.
type ReportSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// Summarize counts reports by validity.
func Summarize(reports []resolve.Report) ReportSummary {
	summary := ReportSummary{Total: len(reports)}
	for _, r := range reports {
		if r.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}
	return summary
}

func (s ReportSummary) String() string {
	text := fmt.Sprintf("%d/%d resolved", s.Valid, s.Total)
	if s.Invalid > 0 {
		text += fmt.Sprintf(", %d failed", s.Invalid)
	}
	return text
}

func statusLabel(r resolve.Report) string {
	if r.Valid {
		return "ok"
	}
	return "failed"
}

// reportDetail shows the provenance for resolved names and the error for
// failed ones.
func reportDetail(r resolve.Report) string {
	if !r.Valid {
		return r.Error
	}
	return string(r.Provenance)
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatContext(limit catalog.Limit) string {
	switch {
	case limit.Context <= 0:
		return "-"
	case limit.Context >= 1_000_000 && limit.Context%1_000_000 == 0:
		return fmt.Sprintf("%dM", limit.Context/1_000_000)
	case limit.Context >= 1000:
		return fmt.Sprintf("%dk", limit.Context/1000)
	default:
		return fmt.Sprintf("%d", limit.Context)
	}
}

func formatCost(cost *catalog.Cost) string {
	if cost == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f / $%.2f", cost.Input, cost.Output)
}

func modelTraits(m catalog.Model) string {
	var traits []string
	if m.HasExtendedThinking() {
		traits = append(traits, "reasoning")
	}
	if m.IsFast() {
		traits = append(traits, "fast")
	}
	if m.Capabilities.ToolCall {
		traits = append(traits, "tools")
	}
	if m.Capabilities.Input.Image {
		traits = append(traits, "vision")
	}
	return strings.Join(traits, ", ")
}

func shortHash(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
