package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

const timeLayout = time.RFC3339

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

func newTable(header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(header)
	return t
}

// FormatReports renders one row per agent or category.
func (f *TableFormatter) FormatReports(reports []resolve.Report) (string, error) {
	t := newTable(table.Row{"Kind", "Name", "Model", "Variant", "Status", "Source"})
	for _, r := range reports {
		t.AppendRow(table.Row{
			string(r.Kind),
			r.Name,
			valueOrDash(r.Model),
			valueOrDash(r.Variant),
			statusLabel(r),
			reportDetail(r),
		})
	}
	if len(reports) > 0 {
		t.AppendFooter(table.Row{"", "", "", "", Summarize(reports).String(), ""})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatModels(models []catalog.Model) (string, error) {
	t := newTable(table.Row{"Model", "Context", "Cost (in/out per 1M)", "Traits"})
	for _, m := range models {
		t.AppendRow(table.Row{m.ID, formatContext(m.Limit), formatCost(m.Cost), modelTraits(m)})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d models", len(models)), "", "", ""})
	return t.Render(), nil
}

func (f *TableFormatter) FormatRecommendations(agent string, scored []catalog.Scored) (string, error) {
	t := newTable(table.Row{"#", "Model", "Score", "Context", "Traits"})
	t.SetTitle("Recommended for " + agent)
	for i, s := range scored {
		t.AppendRow(table.Row{i + 1, s.Model.ID, s.Score, formatContext(s.Model.Limit), modelTraits(s.Model)})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatAudit(issues *omo.Issues) (string, error) {
	if issues == nil || issues.Empty() {
		return "No issues found.", nil
	}

	t := newTable(table.Row{"Issue", "Name", "Detail"})
	for _, a := range issues.MissingAgents {
		t.AppendRow(table.Row{"missing agent", a.Name, a.DefaultModel})
	}
	for _, m := range issues.MissingMCPs {
		t.AppendRow(table.Row{"missing mcp", m.Name, m.Config.URL})
	}
	for _, a := range issues.ExtraAgents {
		t.AppendRow(table.Row{"extra agent", a.Name, valueOrDash(a.Model)})
	}
	for _, name := range issues.ExtraMCPs {
		t.AppendRow(table.Row{"extra mcp", name, "-"})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatSchema(record *upstream.Record) (string, error) {
	if record == nil {
		return "No upstream schema cached; using built-in requirement tables.", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Source", record.Source},
		{"Tag", record.Tag},
		{"URL", record.URL},
		{"SHA256", shortHash(record.SHA256)},
		{"Downloaded", record.DownloadedAt.Format(timeLayout)},
		{"Checked", record.CheckedAt.Format(timeLayout)},
	})
	return t.Render(), nil
}
