package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/config"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

const doctorChecks = 8

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the opencode installation, the oh-my-opencode config and every agent's model, and suggest fixes.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		identity := GetAppIdentity()
		logger.Info("=== " + identity.BinaryName + " doctor ===")
		logger.Info("")

		healthy := true
		step := func(n int, label string) string { return fmt.Sprintf("[%d/%d] %s...", n, doctorChecks, label) }

		goVersion := runtime.Version()
		logger.Info(step(1, "Checking Go runtime")+" ✅ "+goVersion, zap.String("go_version", goVersion))

		version := crucible.GetVersion()
		if version.Crucible != "" && version.Gofulmen != "" {
			logger.Info(fmt.Sprintf("%s ✅ gofulmen v%s, crucible v%s", step(2, "Checking Gofulmen"), version.Gofulmen, version.Crucible))
		} else {
			logger.Warn(step(2, "Checking Gofulmen") + " ⚠️  version metadata unavailable")
			healthy = false
		}

		e, err := loadEnv(ctx, true)
		if err != nil {
			logger.Error(step(3, "Loading configuration")+" ❌", zap.Error(err))
			logger.Warn("⚠️  Remaining checks skipped.")
			return
		}
		defer e.Close()
		logger.Info(step(3, "Loading configuration")+" ✅ "+existenceLabel(config.DefaultConfigPath()),
			zap.String("config_file", config.DefaultConfigPath()))

		_, cfg, cfgErr := e.readConfig()
		switch {
		case cfgErr != nil:
			logger.Error(step(4, "Reading oh-my-opencode config")+" ❌ "+e.paths.ConfigFile, zap.Error(cfgErr))
			healthy = false
		case !fileExists(e.paths.ConfigFile):
			logger.Warn(step(4, "Reading oh-my-opencode config") + " ⚠️  " + e.paths.ConfigFile + " (missing; defaults apply)")
		default:
			logger.Info(fmt.Sprintf("%s ✅ %d agents, %d categories", step(4, "Reading oh-my-opencode config"), len(cfg.Agents), len(cfg.Categories)))
		}

		snapshot, catErr := e.loadCatalog(ctx, true)
		if catErr != nil {
			logger.Error(step(5, "Listing opencode models")+" ❌", zap.Error(catErr))
			healthy = false
		} else {
			logger.Info(fmt.Sprintf("%s ✅ %d models from %d providers", step(5, "Listing opencode models"), len(snapshot.Models), len(snapshot.Providers)))
		}

		if e.store == nil {
			logger.Warn(step(6, "Checking local store") + " ⚠️  unavailable (caching disabled)")
			healthy = false
		} else if e.cfg.Store.URL != "" {
			logger.Info(step(6, "Checking local store")+" ✅ "+e.cfg.Store.URL+" (remote)", zap.String("driver", e.store.Driver()))
		} else {
			absPath, _ := filepath.Abs(e.cfg.Store.Path)
			size := "not created yet"
			if info, err := os.Stat(absPath); err == nil {
				size = formatFileSize(info.Size())
			}
			logger.Info(fmt.Sprintf("%s ✅ %s (%s)", step(6, "Checking local store"), absPath, size))
		}

		if e.store != nil {
			record, err := e.schemaClient().Cached(ctx)
			switch {
			case errors.Is(err, upstream.ErrNoSchema):
				logger.Warn(step(7, "Checking upstream schema") + " ⚠️  not cached (run 'schema update')")
			case err != nil:
				logger.Warn(step(7, "Checking upstream schema")+" ⚠️  unreadable", zap.Error(err))
			default:
				logger.Info(fmt.Sprintf("%s ✅ %s (checked %s)", step(7, "Checking upstream schema"), record.Tag, formatTimeAgo(record.CheckedAt)))
			}
		} else {
			logger.Warn(step(7, "Checking upstream schema") + " ⚠️  skipped (no store)")
		}

		if catErr != nil || cfgErr != nil {
			logger.Warn(step(8, "Validating agents and categories") + " ⚠️  skipped")
		} else {
			tables, _ := e.loadTables(ctx)
			resolver := e.resolver(tables)
			available := snapshot.IDs()
			var failures []string
			for _, name := range tables.AgentNames() {
				if v := resolver.ValidateAgent(name, available, cfg); !v.Valid {
					failures = append(failures, name+": "+v.Error)
				}
			}
			for _, name := range tables.CategoryNames() {
				if v := resolver.ValidateCategory(name, available, cfg); !v.Valid {
					failures = append(failures, name+": "+v.Error)
				}
			}
			total := len(tables.AgentNames()) + len(tables.CategoryNames())
			if len(failures) == 0 {
				logger.Info(fmt.Sprintf("%s ✅ %d/%d resolve", step(8, "Validating agents and categories"), total, total))
			} else {
				logger.Warn(fmt.Sprintf("%s ⚠️  %d/%d resolve", step(8, "Validating agents and categories"), total-len(failures), total))
				for _, failure := range failures {
					logger.Warn("       " + failure)
				}
				healthy = false
			}
		}

		logger.Info("")
		if healthy {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s setup is healthy.", identity.BinaryName))
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		logger.Info("=== End Diagnostics ===")
	},
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}
		if fileExists(configPath) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(initConfigYAML), 0644); err != nil { // #nosec G306 -- config holds no secrets
			return fmt.Errorf("write config file: %w", err)
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the local store (catalog and schema caches)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Store.URL != "" {
			return fmt.Errorf("remote store configured; reset is not supported")
		}
		absPath, _ := filepath.Abs(cfg.Store.Path)
		for _, path := range []string{absPath, absPath + "-wal", absPath + "-shm"} {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
		observability.CLILogger.Info("Local store removed", zap.String("path", absPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd, doctorResetCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
}

const initConfigYAML = `# agentcfg config - created by 'agentcfg doctor init'
opencode:
  # config_dir: ~/.config/opencode
  binary: opencode
  args: [models, --verbose]
  timeout: 30s
catalog:
  use_cache: true
  cache_ttl: 10m
schema:
  enabled: true
  ttl: 24h
resolve:
  # Model selected in the host UI; applies to primary agents.
  ui_model: ""
server:
  host: localhost
  port: 8080
  watch_config: true
`

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// formatTimeAgo returns a human-readable relative time
func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "min") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	default:
		return plural(int(d.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceLabel(path string) string {
	if fileExists(path) {
		return path
	}
	return "defaults (no config file)"
}
