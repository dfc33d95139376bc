package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/config"
	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/opencode"
	"github.com/agentcfg/agentcfg/internal/output"
	"github.com/agentcfg/agentcfg/internal/profiles"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want foundry.ExitCode
	}{
		{"nil", nil, foundry.ExitCode(0)},
		{"catalog command", &catalog.LoadError{Command: "opencode models", Err: fmt.Errorf("exit 1")}, foundry.ExitExternalServiceUnavailable},
		{"empty catalog", fmt.Errorf("load: %w", catalog.ErrEmptyCatalog), foundry.ExitExternalServiceUnavailable},
		{"profile missing", fmt.Errorf("use: %w", profiles.ErrNotFound), foundry.ExitFileNotFound},
		{"profile exists", profiles.ErrExists, foundry.ExitInvalidArgument},
		{"bad profile name", profiles.ErrInvalidName, foundry.ExitInvalidArgument},
		{"requirement unmet", apperrors.New(apperrors.CodeRequirementUnmet, "Required model gpt-5.2 not available"), foundry.ExitDataInvalid},
		{"resolution failed", apperrors.New(apperrors.CodeResolutionFailed, "1 of 3 names failed to resolve"), foundry.ExitDataInvalid},
		{"not found", apperrors.NewNotFoundError("unknown agent"), foundry.ExitInvalidArgument},
		{"config invalid", apperrors.New(apperrors.CodeConfigInvalid, "bad json"), foundry.ExitConfigInvalid},
		{"timeout", apperrors.New(apperrors.CodeTimeout, "slow"), foundry.ExitExternalServiceUnavailable},
		{"wrapped envelope", fmt.Errorf("cmd: %w", apperrors.New(apperrors.CodeCatalogUnavailable, "gone")), foundry.ExitExternalServiceUnavailable},
		{"internal envelope", apperrors.New(apperrors.CodeInternal, "boom"), foundry.ExitFailure},
		{"plain", fmt.Errorf("boom"), foundry.ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestDescribeValidation(t *testing.T) {
	assert.Equal(t, "✓ agent oracle: openai/gpt-5.2 (variant high, provider-fallback)",
		describeValidation(resolve.KindAgent, "oracle", resolve.Validation{
			Valid:      true,
			Model:      "openai/gpt-5.2",
			Variant:    "high",
			Provenance: resolve.ProvenanceProviderFallback,
		}))
	assert.Equal(t, "✓ category quick: anthropic/claude-haiku-4-5",
		describeValidation(resolve.KindCategory, "quick", resolve.Validation{Valid: true, Model: "anthropic/claude-haiku-4-5"}))
	assert.Equal(t, "✗ agent hephaestus: Required model gpt-5.2-codex not available",
		describeValidation(resolve.KindAgent, "hephaestus", resolve.Validation{Error: "Required model gpt-5.2-codex not available"}))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "unknown", formatTimeAgo(time.Time{}))
	assert.Equal(t, "just now", formatTimeAgo(time.Now().Add(-10*time.Second)))
	assert.Equal(t, "1 min ago", formatTimeAgo(time.Now().Add(-90*time.Second)))
	assert.Equal(t, "3 hours ago", formatTimeAgo(time.Now().Add(-3*time.Hour-time.Minute)))
	assert.Equal(t, "2 days ago", formatTimeAgo(time.Now().Add(-49*time.Hour)))

	assert.Equal(t, "512 bytes", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2*1024*1024))

	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "high", dash("high"))
}

func TestRenderAgents(t *testing.T) {
	assert.Equal(t, "No agents configured.", renderAgents(&omo.Config{}))
	assert.Equal(t, "No agents configured.", renderAgents(nil))

	rendered := renderAgents(&omo.Config{Agents: map[string]omo.AgentConfig{
		"oracle":    {Model: "openai/gpt-5.2", Variant: "high"},
		"librarian": {Category: "quick"},
	}})
	lines := strings.Split(rendered, "\n")
	var librarian, oracle int
	for i, line := range lines {
		switch {
		case strings.Contains(line, "librarian"):
			librarian = i
		case strings.Contains(line, "oracle"):
			oracle = i
		}
	}
	assert.Less(t, librarian, oracle, "agents are sorted by name")
	assert.Contains(t, rendered, "openai/gpt-5.2")
	assert.Contains(t, rendered, "quick")
	assert.Contains(t, rendered, omo.Describe("oracle"))
}

func newRenderCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	addOutputFlags(c)
	require.NoError(t, c.ParseFlags(args))
	return c
}

func TestRenderWritesToOutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	c := newRenderCommand(t, "-o", "json", "--out", path)

	var seen output.Formatter
	err := render(c, func(f output.Formatter) (string, error) {
		seen = f
		return `{"ok":true}`, nil
	})
	require.NoError(t, err)
	assert.IsType(t, &output.JSONFormatter{}, seen)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"ok\":true}\n", string(data))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	c := newRenderCommand(t, "-o", "yaml")
	called := false
	err := render(c, func(output.Formatter) (string, error) {
		called = true
		return "", nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestOpenSinkStdout(t *testing.T) {
	for _, path := range []string{"", "  ", "-"} {
		sink, err := openSink(path)
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, sink.writer)
		assert.Equal(t, "-", sink.path)
		assert.NoError(t, sink.close())
	}
}

func testEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{
		cfg: &config.Config{
			OpenCode: config.OpenCodeConfig{ConfigDir: dir, Binary: "sh", Timeout: 5 * time.Second},
			Catalog:  config.CatalogConfig{UseCache: true, CacheTTL: time.Minute},
			Resolve:  config.ResolveConfig{UIModel: "google/gemini-3-pro"},
		},
		paths: opencode.NewPaths(dir),
	}
}

func TestEnvReadConfig(t *testing.T) {
	e := testEnv(t)

	// A missing oh-my-opencode.json reads as an empty config.
	_, cfg, err := e.readConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.Agents)

	require.NoError(t, os.WriteFile(e.paths.ConfigFile, []byte(`{"agents":{"oracle":{"model":"openai/gpt-5.2"}}}`), 0o600))
	_, cfg, err = e.readConfig()
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-5.2", cfg.Agents["oracle"].Model)

	require.NoError(t, os.WriteFile(e.paths.ConfigFile, []byte(`{"agents":`), 0o600))
	_, _, err = e.readConfig()
	assert.Error(t, err)
}

func TestEnvUIModel(t *testing.T) {
	e := testEnv(t)
	assert.Equal(t, "google/gemini-3-pro", e.uiModel(""))
	assert.Equal(t, "openai/gpt-5.2", e.uiModel(" openai/gpt-5.2 "))
}

func TestEnvLoadTablesWithoutStore(t *testing.T) {
	e := testEnv(t)
	e.cfg.Schema.Enabled = true

	tables, tag := e.loadTables(context.Background())
	require.NotNil(t, tables)
	assert.Empty(t, tag)
}

func TestEnvCatalogLoaderSkipsCacheWithoutStore(t *testing.T) {
	e := testEnv(t)
	loader := e.catalogLoader()
	assert.Nil(t, loader.Cache)
	assert.Equal(t, "sh", loader.Binary)
}

func TestEnvLoadCatalogRunsConfiguredCommand(t *testing.T) {
	e := testEnv(t)
	e.cfg.OpenCode.Args = []string{"-c", `printf 'openai/gpt-5.2\n{"id":"gpt-5.2","name":"GPT-5.2"}\n'`}

	snapshot, err := e.loadCatalog(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai/gpt-5.2"}, snapshot.IDs())
	assert.False(t, snapshot.FromCache)
}

func TestEnvResolverReadsHostDefault(t *testing.T) {
	e := testEnv(t)
	require.NoError(t, os.WriteFile(e.paths.HostConfigFile, []byte("{\n  // host default\n  \"model\": \"openai/gpt-5.2\",\n}\n"), 0o600))

	r := e.resolver(nil)
	available := []string{"anthropic/claude-opus-4-5", "openai/gpt-5.2"}
	result := r.Resolve(available, &omo.Config{}, "some-custom-agent", "")
	require.NotNil(t, result)
	assert.Equal(t, "openai/gpt-5.2", result.Model)
	assert.Equal(t, resolve.ProvenanceSystemDefault, result.Provenance)
}

func TestVersionCommandWritesToOutput(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-15")
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Contains(t, buf.String(), "1.2.3")
}
