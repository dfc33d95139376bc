package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agentcfg/agentcfg/internal/catalog"
	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/requirements"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

// Query parameters.
const (
	paramUIModel  = "ui_model"
	paramMatch    = "match"
	paramProvider = "provider"
	paramLimit    = "limit"
)

const defaultRecommendLimit = 5

// AgentsResponse is the GET /v1/agents body.
type AgentsResponse struct {
	Reports   []resolve.Report `json:"reports"`
	Models    int              `json:"models"`
	SchemaTag string           `json:"schema_tag,omitempty"`
	LoadedAt  time.Time        `json:"loaded_at"`
}

// ModelsResponse is the GET /v1/models body.
type ModelsResponse struct {
	Models    []catalog.Model `json:"models"`
	Providers []string        `json:"providers"`
}

// ReloadResponse is the POST /v1/reload body.
type ReloadResponse struct {
	Models   int       `json:"models"`
	LoadedAt time.Time `json:"loaded_at"`
}

type api struct {
	state   *State
	workers int
	uiModel string
}

func (a *api) snapshot(w http.ResponseWriter, r *http.Request) (*Snapshot, bool) {
	snapshot, err := a.state.Current()
	if err != nil {
		env := apperrors.Wrap(r.Context(), apperrors.CodeServiceUnavailable, err, "resolution snapshot not loaded")
		HandleError(w, r, env)
		return nil, false
	}
	return snapshot, true
}

func (a *api) uiModelFor(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get(paramUIModel)); v != "" {
		return v
	}
	return a.uiModel
}

// listAgents resolves every agent and category in the requirement tables.
func (a *api) listAgents(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}

	start := time.Now()
	reports, err := snapshot.Resolver.ResolveAll(r.Context(), snapshot.Available(), snapshot.Config, snapshot.Resolver.Names(), resolve.BatchOptions{
		UIModel: a.uiModelFor(r),
		Workers: a.workers,
	})
	if err != nil {
		HandleError(w, r, apperrors.FromLoadError(r.Context(), err))
		return
	}
	if len(reports) > 0 {
		each := time.Since(start) / time.Duration(len(reports))
		for _, report := range reports {
			metrics.RecordResolution(string(report.Kind), string(report.Provenance), each)
		}
	}

	writeJSON(w, http.StatusOK, AgentsResponse{
		Reports:   reports,
		Models:    len(snapshot.Available()),
		SchemaTag: snapshot.SchemaTag,
		LoadedAt:  snapshot.LoadedAt,
	})
}

// resolveName resolves one agent or category. Names in neither table still
// resolve through the system default.
func (a *api) resolveName(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}

	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		HandleError(w, r, apperrors.NewInvalidInputError("name is required"))
		return
	}

	start := time.Now()
	report := snapshot.Resolver.Report(snapshot.Available(), snapshot.Config, name, a.uiModelFor(r))
	metrics.RecordResolution(string(report.Kind), string(report.Provenance), time.Since(start))
	if !report.Valid {
		metrics.RecordValidationFailure(string(report.Kind), name)
		HandleError(w, r, apperrors.FromValidation(r.Context(), report.Kind, name, resolve.Validation{Error: report.Error}))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// validateName runs the agent or category validator.
func (a *api) validateName(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}

	kind := resolve.Kind(strings.ToLower(chi.URLParam(r, "kind")))
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	tables := snapshot.Resolver.Tables
	if tables == nil {
		tables = requirements.Builtin()
	}

	var validation resolve.Validation
	switch kind {
	case resolve.KindAgent:
		if _, found := tables.Agent(name); !found {
			HandleError(w, r, apperrors.NewNotFoundError("unknown agent "+strconv.Quote(name)))
			return
		}
		validation = snapshot.Resolver.ValidateAgent(name, snapshot.Available(), snapshot.Config)
	case resolve.KindCategory:
		if _, found := tables.Category(name); !found {
			HandleError(w, r, apperrors.NewNotFoundError("unknown category "+strconv.Quote(name)))
			return
		}
		validation = snapshot.Resolver.ValidateCategory(name, snapshot.Available(), snapshot.Config)
	default:
		HandleError(w, r, apperrors.NewInvalidInputError(`kind must be "agent" or "category"`))
		return
	}

	if !validation.Valid {
		metrics.RecordValidationFailure(string(kind), name)
		HandleError(w, r, apperrors.FromValidation(r.Context(), kind, name, validation))
		return
	}
	writeJSON(w, http.StatusOK, validation)
}

// listModels returns the catalog, filtered by ?match= globs and ?provider=.
func (a *api) listModels(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	models, err := catalog.Filter(snapshot.Catalog.Models, query[paramMatch], query[paramProvider])
	if err != nil {
		HandleError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "invalid model filter"))
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Models: models, Providers: catalog.Providers(models)})
}

// recommend ranks catalog models for an agent role.
func (a *api) recommend(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}

	limit := defaultRecommendLimit
	if raw := r.URL.Query().Get(paramLimit); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			HandleError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	var preferred []string
	if snapshot.Config != nil {
		preferred = snapshot.Config.PreferredProviders
	}
	agent := chi.URLParam(r, "agent")
	writeJSON(w, http.StatusOK, catalog.Recommend(snapshot.Catalog.Models, agent, preferred, limit))
}

// reload rebuilds the snapshot now.
func (a *api) reload(w http.ResponseWriter, r *http.Request) {
	if err := a.state.Reload(r.Context()); err != nil {
		HandleError(w, r, apperrors.FromLoadError(r.Context(), err))
		return
	}
	snapshot, ok := a.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Models: len(snapshot.Available()), LoadedAt: snapshot.LoadedAt})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
