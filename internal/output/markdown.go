package output

import (
	"fmt"
	"strings"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatReports(reports []resolve.Report) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Model resolution\n\n")
	sb.WriteString("| Kind | Name | Model | Variant | Status | Source |\n")
	sb.WriteString("|------|------|-------|---------|--------|--------|\n")
	for _, r := range reports {
		writeRow(&sb, string(r.Kind), r.Name, valueOrDash(r.Model), valueOrDash(r.Variant), statusLabel(r), reportDetail(r))
	}
	if len(reports) > 0 {
		sb.WriteString(fmt.Sprintf("\n**Summary**: %s\n", Summarize(reports)))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatModels(models []catalog.Model) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Available models (%d)\n\n", len(models)))
	sb.WriteString("| Model | Context | Cost (in/out per 1M) | Traits |\n")
	sb.WriteString("|-------|---------|----------------------|--------|\n")
	for _, m := range models {
		writeRow(&sb, m.ID, formatContext(m.Limit), formatCost(m.Cost), modelTraits(m))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatRecommendations(agent string, scored []catalog.Scored) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Recommended for %s\n\n", escapeMarkdownCell(agent)))
	sb.WriteString("| # | Model | Score | Context |\n")
	sb.WriteString("|---|-------|-------|---------|\n")
	for i, s := range scored {
		writeRow(&sb, fmt.Sprint(i+1), s.Model.ID, fmt.Sprint(s.Score), formatContext(s.Model.Limit))
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatAudit(issues *omo.Issues) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Configuration audit\n\n")
	if issues == nil || issues.Empty() {
		sb.WriteString("No issues found.\n")
		return sb.String(), nil
	}
	sb.WriteString("| Issue | Name | Detail |\n")
	sb.WriteString("|-------|------|--------|\n")
	for _, a := range issues.MissingAgents {
		writeRow(&sb, "missing agent", a.Name, a.DefaultModel)
	}
	for _, m := range issues.MissingMCPs {
		writeRow(&sb, "missing mcp", m.Name, m.Config.URL)
	}
	for _, a := range issues.ExtraAgents {
		writeRow(&sb, "extra agent", a.Name, valueOrDash(a.Model))
	}
	for _, name := range issues.ExtraMCPs {
		writeRow(&sb, "extra mcp", name, "-")
	}
	return sb.String(), nil
}

func (f *MarkdownFormatter) FormatSchema(record *upstream.Record) (string, error) {
	if record == nil {
		return "No upstream schema cached; using built-in requirement tables.\n", nil
	}
	var sb strings.Builder
	sb.WriteString("## Upstream schema\n\n")
	sb.WriteString(fmt.Sprintf("- **Source**: %s\n", record.Source))
	sb.WriteString(fmt.Sprintf("- **Tag**: %s\n", record.Tag))
	sb.WriteString(fmt.Sprintf("- **SHA256**: `%s`\n", record.SHA256))
	sb.WriteString(fmt.Sprintf("- **Checked**: %s\n", record.CheckedAt.Format(timeLayout)))
	return sb.String(), nil
}

func writeRow(sb *strings.Builder, cells ...string) {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = escapeMarkdownCell(cell)
	}
	sb.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
