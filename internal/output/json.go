package output

import (
	"encoding/json"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

type reportsDocument struct {
	Reports []resolve.Report `json:"reports"`
	Summary ReportSummary    `json:"summary"`
}

type recommendationsDocument struct {
	Agent           string           `json:"agent"`
	Recommendations []catalog.Scored `json:"recommendations"`
}

// schemaDocument drops the raw schema payload.
type schemaDocument struct {
	Source       string `json:"source"`
	Tag          string `json:"tag"`
	URL          string `json:"url"`
	SHA256       string `json:"sha256"`
	DownloadedAt string `json:"downloaded_at"`
	CheckedAt    string `json:"checked_at"`
}

func (f *JSONFormatter) FormatReports(reports []resolve.Report) (string, error) {
	if reports == nil {
		reports = []resolve.Report{}
	}
	return f.encode(reportsDocument{Reports: reports, Summary: Summarize(reports)})
}

func (f *JSONFormatter) FormatModels(models []catalog.Model) (string, error) {
	if models == nil {
		models = []catalog.Model{}
	}
	return f.encode(models)
}

func (f *JSONFormatter) FormatRecommendations(agent string, scored []catalog.Scored) (string, error) {
	if scored == nil {
		scored = []catalog.Scored{}
	}
	return f.encode(recommendationsDocument{Agent: agent, Recommendations: scored})
}

func (f *JSONFormatter) FormatAudit(issues *omo.Issues) (string, error) {
	if issues == nil {
		issues = &omo.Issues{}
	}
	return f.encode(issues)
}

func (f *JSONFormatter) FormatSchema(record *upstream.Record) (string, error) {
	if record == nil {
		return f.encode(nil)
	}
	return f.encode(schemaDocument{
		Source:       record.Source,
		Tag:          record.Tag,
		URL:          record.URL,
		SHA256:       record.SHA256,
		DownloadedAt: record.DownloadedAt.Format(timeLayout),
		CheckedAt:    record.CheckedAt.Format(timeLayout),
	})
}

func (f *JSONFormatter) encode(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
