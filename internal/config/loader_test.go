package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "opencode", cfg.OpenCode.Binary)
		assert.Equal(t, []string{"models", "--verbose"}, cfg.OpenCode.Args)
		assert.Equal(t, 30*time.Second, cfg.OpenCode.Timeout)
		assert.Empty(t, cfg.OpenCode.ConfigDir)

		assert.True(t, cfg.Catalog.UseCache)
		assert.Equal(t, 10*time.Minute, cfg.Catalog.CacheTTL)

		assert.True(t, cfg.Schema.Enabled)
		assert.Equal(t, "code-yeongyu", cfg.Schema.Owner)
		assert.Equal(t, "oh-my-opencode", cfg.Schema.Repo)
		assert.Equal(t, 24*time.Hour, cfg.Schema.TTL)
		assert.Equal(t, "https://api.github.com", cfg.Schema.APIBase)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.True(t, cfg.Server.WatchConfig)

		assert.Equal(t, "libsql", cfg.Store.Driver)
		expectedStorePath := filepath.Join(gfconfig.GetAppDataDir("agentcfg"), "agentcfg.db")
		assert.Equal(t, expectedStorePath, cfg.Store.Path)
		assert.Equal(t, "", cfg.Store.URL)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "SIMPLE", cfg.Logging.Profile)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.True(t, cfg.Health.Enabled)
		assert.False(t, cfg.Debug.PprofEnabled)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
			},
			"opencode": map[string]any{
				"config_dir": "/tmp/opencode",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "/tmp/opencode", cfg.OpenCode.ConfigDir)
		// Siblings of an overridden key keep their defaults.
		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, "opencode", cfg.OpenCode.Binary)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("AGENTCFG_PORT", "3000")
		t.Setenv("AGENTCFG_LOG_LEVEL", "warn")
		t.Setenv("AGENTCFG_CATALOG_USE_CACHE", "false")
		t.Setenv("AGENTCFG_OPENCODE_ARGS", "models,--verbose,--refresh")
		t.Setenv("AGENTCFG_SCHEMA_TTL", "1h")
		t.Setenv("AGENTCFG_UI_MODEL", "anthropic/claude-opus-4-5")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Catalog.UseCache)
		assert.Equal(t, []string{"models", "--verbose", "--refresh"}, cfg.OpenCode.Args)
		assert.Equal(t, time.Hour, cfg.Schema.TTL)
		assert.Equal(t, "anthropic/claude-opus-4-5", cfg.Resolve.UIModel)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("AGENTCFG_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{"server": map[string]any{"port": 5000}})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("InvalidWorkers", func(t *testing.T) {
		_, err := Load(ctx, map[string]any{"workers": 0})
		require.Error(t, err)
	})
}

func TestLoadReadsViperSettings(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("catalog.cache_ttl", "90s")
	viper.Set("opencode.binary", "/opt/opencode/bin/opencode")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Catalog.CacheTTL)
	assert.Equal(t, "/opt/opencode/bin/opencode", cfg.OpenCode.Binary)
	assert.True(t, cfg.Catalog.UseCache)
}

func TestGetConfig(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
}

func TestEnvSpecs(t *testing.T) {
	_, err := Load(context.Background())
	require.NoError(t, err)

	envVarNames := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		envVarNames[spec.Name] = true
	}

	for _, name := range []string{
		"AGENTCFG_LOG_LEVEL",
		"AGENTCFG_PORT",
		"AGENTCFG_DB_PATH",
		"AGENTCFG_OPENCODE_CONFIG_DIR",
		"AGENTCFG_SCHEMA_TTL",
	} {
		assert.True(t, envVarNames[name], "%s must be mapped", name)
	}
}

func TestOpencodePaths(t *testing.T) {
	cfg := &Config{OpenCode: OpenCodeConfig{ConfigDir: "/srv/opencode"}}
	paths, err := cfg.OpencodePaths()
	require.NoError(t, err)
	assert.Equal(t, "/srv/opencode/oh-my-opencode.json", paths.ConfigFile)
	assert.Equal(t, "/srv/opencode/opencode.json", paths.HostConfigFile)

	home := t.TempDir()
	t.Setenv("HOME", home)
	paths, err = (&Config{}).OpencodePaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "opencode"), paths.ConfigDir)
}

func TestMergeSettings(t *testing.T) {
	dst := map[string]any{"server": map[string]any{"host": "localhost", "port": 8080}}
	src := map[string]any{"Server": map[string]any{"port": 1}, "workers": 2}
	mergeSettings(dst, src)

	assert.Equal(t, map[string]any{
		"server":  map[string]any{"host": "localhost", "port": 1},
		"workers": 2,
	}, dst)
}
