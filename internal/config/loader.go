// Package config provides centralized configuration management for agentcfg.
// It implements the three-layer config pattern:
// Layer 1: built-in defaults registered on viper
// Layer 2: user overrides (config file read through viper)
// Layer 3: environment variables (gofulmen/config env specs) and runtime overrides
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/agentcfg/agentcfg/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("opencode.config_dir", "")
	v.SetDefault("opencode.binary", "opencode")
	v.SetDefault("opencode.args", []string{"models", "--verbose"})
	v.SetDefault("opencode.timeout", "30s")

	v.SetDefault("catalog.use_cache", true)
	v.SetDefault("catalog.cache_ttl", "10m")

	v.SetDefault("schema.enabled", true)
	v.SetDefault("schema.owner", "code-yeongyu")
	v.SetDefault("schema.repo", "oh-my-opencode")
	v.SetDefault("schema.ttl", "24h")
	v.SetDefault("schema.timeout", "30s")
	v.SetDefault("schema.api_base", "https://api.github.com")
	v.SetDefault("schema.raw_base", "https://raw.githubusercontent.com")

	v.SetDefault("resolve.ui_model", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.watch_config", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	v.SetDefault("workers", 4)
}

// Load builds the configuration from defaults, the settings already read by
// the global viper instance (config file, bound flags), environment
// variables, and runtime overrides, in increasing precedence.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	defaults := viper.New()
	SetDefaults(defaults)
	merged := defaults.AllSettings()
	mergeSettings(merged, viper.AllSettings())

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	mergeSettings(merged, envOverrides)
	for _, overrides := range runtimeOverrides {
		mergeSettings(merged, overrides)
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}

	setConfig(cfg)

	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// mergeSettings deep-merges src into dst. Nested maps merge key by key;
// any other value replaces what dst holds.
func mergeSettings(dst, src map[string]any) {
	for key, value := range src {
		key = strings.ToLower(key)
		srcMap, srcIsMap := value.(map[string]any)
		if dstMap, ok := dst[key].(map[string]any); ok && srcIsMap {
			mergeSettings(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			copied := make(map[string]any, len(srcMap))
			mergeSettings(copied, srcMap)
			dst[key] = copied
			continue
		}
		dst[key] = value
	}
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs() []EnvVarSpec {
	if appIdentity == nil {
		return []EnvVarSpec{}
	}

	prefix := appid.EnvName(appIdentity, "")

	return []EnvVarSpec{
		// opencode
		{Name: prefix + "OPENCODE_CONFIG_DIR", Path: []string{"opencode", "config_dir"}, Type: EnvString},
		{Name: prefix + "OPENCODE_BINARY", Path: []string{"opencode", "binary"}, Type: EnvString},
		// Comma separated, split by the slice decode hook
		{Name: prefix + "OPENCODE_ARGS", Path: []string{"opencode", "args"}, Type: EnvString},
		{Name: prefix + "OPENCODE_TIMEOUT", Path: []string{"opencode", "timeout"}, Type: EnvString},

		// Catalog cache
		{Name: prefix + "CATALOG_USE_CACHE", Path: []string{"catalog", "use_cache"}, Type: EnvBool},
		{Name: prefix + "CATALOG_CACHE_TTL", Path: []string{"catalog", "cache_ttl"}, Type: EnvString},

		// Upstream schema
		{Name: prefix + "SCHEMA_ENABLED", Path: []string{"schema", "enabled"}, Type: EnvBool},
		{Name: prefix + "SCHEMA_OWNER", Path: []string{"schema", "owner"}, Type: EnvString},
		{Name: prefix + "SCHEMA_REPO", Path: []string{"schema", "repo"}, Type: EnvString},
		{Name: prefix + "SCHEMA_TTL", Path: []string{"schema", "ttl"}, Type: EnvString},
		{Name: prefix + "SCHEMA_API_BASE", Path: []string{"schema", "api_base"}, Type: EnvString},
		{Name: prefix + "SCHEMA_RAW_BASE", Path: []string{"schema", "raw_base"}, Type: EnvString},

		{Name: prefix + "UI_MODEL", Path: []string{"resolve", "ui_model"}, Type: EnvString},

		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "WATCH_CONFIG", Path: []string{"server", "watch_config"}, Type: EnvBool},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},

		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_PPROF_ENABLED", Path: []string{"debug", "pprof_enabled"}, Type: EnvBool},

		{Name: prefix + "WORKERS", Path: []string{"workers"}, Type: EnvInt},
	}
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "agentcfg" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "agentcfg"
	binaryName = "agentcfg"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppCacheDir(configName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
