package resolve

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agentcfg/agentcfg/internal/omo"
)

// Kind says which requirement table a name was found in.
type Kind string

const (
	KindAgent    Kind = "agent"
	KindCategory Kind = "category"
	KindUnknown  Kind = "unknown"
)

// DefaultWorkers bounds ResolveAll when no limit is given.
const DefaultWorkers = 4

// Report is the resolution and validation outcome for one name.
type Report struct {
	Name       string     `json:"name"`
	Kind       Kind       `json:"kind"`
	Model      string     `json:"model,omitempty"`
	Variant    string     `json:"variant,omitempty"`
	Provenance Provenance `json:"provenance,omitempty"`
	Valid      bool       `json:"valid"`
	Error      string     `json:"error,omitempty"`
}

// BatchOptions tunes ResolveAll.
type BatchOptions struct {
	// UIModel is offered to primary agents.
	UIModel string

	// Workers bounds concurrent resolutions. Zero uses DefaultWorkers.
	Workers int
}

// Report resolves a single name, attaches its variant, and applies the hard
// requirement gate.
func (r *Resolver) Report(available []string, cfg *omo.Config, name, uiModel string) Report {
	req, isAgent, isCategory := r.tables().Lookup(name)
	report := Report{Name: name, Kind: KindUnknown}
	switch {
	case isAgent:
		report.Kind = KindAgent
	case isCategory:
		report.Kind = KindCategory
	}

	if check := CheckRequires(req, available); !check.Valid {
		report.Error = check.Error
		return report
	}

	result := r.Resolve(available, cfg, name, uiModel)
	if result == nil {
		kind := string(report.Kind)
		if report.Kind == KindUnknown {
			kind = "agent"
		}
		report.Error = fmt.Sprintf("Could not resolve model for %s %q", kind, name)
		return report
	}

	report.Valid = true
	report.Model = result.Model
	report.Provenance = result.Provenance
	report.Variant = ResolveVariant(cfg, name, result.Variant)
	return report
}

// ResolveAll reports on every name. Output order matches names. The only
// error returned is the context's.
func (r *Resolver) ResolveAll(ctx context.Context, available []string, cfg *omo.Config, names []string, opts BatchOptions) ([]Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	reports := make([]Report, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r.Report(available, cfg, name, opts.UIModel)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Names returns every agent followed by every category in the tables.
func (r *Resolver) Names() []string {
	t := r.tables()
	names := append([]string{}, t.AgentNames()...)
	return append(names, t.CategoryNames()...)
}
