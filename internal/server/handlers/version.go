package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"
)

// BuildInfo is injected from main through the cmd package.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// SchemaFunc reports the upstream schema tag the requirement tables were
// overlaid with, or "" when the built-in tables are in use.
type SchemaFunc func() string

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo      `json:"app"`
	Requirements Requirements `json:"requirements"`
	Dependencies DepInfo      `json:"dependencies"`
	Runtime      RuntimeInfo  `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// Requirements says where the requirement tables came from.
type Requirements struct {
	Source    string `json:"source"`
	SchemaTag string `json:"schema_tag,omitempty"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// VersionHandler serves GET /version.
type VersionHandler struct {
	mu       sync.RWMutex
	build    BuildInfo
	identity *appidentity.Identity
	schema   SchemaFunc
}

// NewVersionHandler creates a handler. identity and schema may be nil.
func NewVersionHandler(build BuildInfo, identity *appidentity.Identity, schema SchemaFunc) *VersionHandler {
	if build.Version == "" {
		build.Version = "dev"
	}
	return &VersionHandler{build: build, identity: identity, schema: schema}
}

// SetAppIdentity replaces the reported identity.
func (h *VersionHandler) SetAppIdentity(identity *appidentity.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identity = identity
}

func (h *VersionHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	build, identity, schema := h.build, h.identity, h.schema
	h.mu.RUnlock()

	name := "agentcfg"
	if identity != nil && identity.BinaryName != "" {
		name = identity.BinaryName
	} else if len(os.Args) > 0 && os.Args[0] != "" {
		name = filepath.Base(os.Args[0])
	}

	requirements := Requirements{Source: "builtin"}
	if schema != nil {
		if tag := schema(); tag != "" {
			requirements = Requirements{Source: "upstream", SchemaTag: tag}
		}
	}

	version := crucible.GetVersion()
	writeJSON(w, VersionResponse{
		App: AppInfo{
			Name:      name,
			Version:   build.Version,
			Commit:    build.Commit,
			BuildDate: build.BuildDate,
			GoVersion: runtime.Version(),
		},
		Requirements: requirements,
		Dependencies: DepInfo{
			Gofulmen: version.Gofulmen,
			Crucible: version.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
