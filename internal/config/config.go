package config

import (
	"strings"
	"time"

	"github.com/agentcfg/agentcfg/internal/opencode"
)

// Config represents the complete application configuration.
// Layer 1: built-in defaults (SetDefaults)
// Layer 2: user config file (~/.config/agentcfg/config.yaml)
// Layer 3: environment variables and runtime overrides
type Config struct {
	OpenCode OpenCodeConfig `mapstructure:"opencode"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Resolve  ResolveConfig  `mapstructure:"resolve"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`
	Workers  int            `mapstructure:"workers"`
}

// OpenCodeConfig locates the opencode installation and its CLI.
type OpenCodeConfig struct {
	// ConfigDir holds oh-my-opencode.json, opencode.json and the profile
	// directories. Empty means ~/.config/opencode.
	ConfigDir string        `mapstructure:"config_dir"`
	Binary    string        `mapstructure:"binary"`
	Args      []string      `mapstructure:"args"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CatalogConfig controls caching of the model catalog.
type CatalogConfig struct {
	UseCache bool          `mapstructure:"use_cache"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SchemaConfig locates the upstream oh-my-opencode schema.
type SchemaConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Owner   string        `mapstructure:"owner"`
	Repo    string        `mapstructure:"repo"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
	APIBase string        `mapstructure:"api_base"`
	RawBase string        `mapstructure:"raw_base"`
}

// ResolveConfig holds resolution inputs that are not part of the
// oh-my-opencode document.
type ResolveConfig struct {
	// UIModel is the model selected in the host UI, honored for primary agents.
	UIModel string `mapstructure:"ui_model"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// WatchConfig reloads the served snapshot when oh-my-opencode.json changes.
	WatchConfig bool `mapstructure:"watch_config"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
// - SIMPLE: console output only (CLI)
// - STRUCTURED: JSON sinks with correlation IDs (serve)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// OpencodePaths derives the opencode file layout from config.
func (c *Config) OpencodePaths() (opencode.Paths, error) {
	dir := ""
	if c != nil {
		dir = strings.TrimSpace(c.OpenCode.ConfigDir)
	}
	if dir == "" {
		var err error
		dir, err = opencode.DefaultConfigDir()
		if err != nil {
			return opencode.Paths{}, err
		}
	}
	return opencode.NewPaths(dir), nil
}
