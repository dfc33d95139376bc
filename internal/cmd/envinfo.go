package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/config"
	"github.com/agentcfg/agentcfg/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		version := crucible.GetVersion()
		identity := GetAppIdentity()

		logger.Info("=== " + identity.BinaryName + " Environment Information ===")
		logger.Info("")
		logger.Info("Application:")
		logger.Info("  Name:       " + identity.BinaryName)
		logger.Info("  Version:    " + versionInfo.Version)
		logger.Info("  Commit:     " + versionInfo.Commit)
		logger.Info("  Built:      " + versionInfo.BuildDate)
		logger.Info("")

		logger.Info("SSOT:")
		logger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		logger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		logger.Info("")

		logger.Info("Runtime:")
		logger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		logger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		logger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		logger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			logger.Warn("Config load failed", zap.Error(err))
			return
		}
		paths, err := cfg.OpencodePaths()
		if err != nil {
			logger.Warn("Cannot resolve opencode paths", zap.Error(err))
			return
		}

		logger.Info("OpenCode:")
		logger.Info("  Config Dir:     " + paths.ConfigDir)
		logger.Info("  OmO Config:     " + paths.ConfigFile)
		logger.Info("  Host Config:    " + paths.HostConfigFile)
		logger.Info("  Profiles:       " + paths.ConfigsDir)
		logger.Info("  Catalog:        " + strings.Join(append([]string{cfg.OpenCode.Binary}, cfg.OpenCode.Args...), " "))
		logger.Info("")

		logger.Info("Configuration:")
		logger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		logger.Info("  Catalog TTL:    " + cfg.Catalog.CacheTTL.String())
		logger.Info(fmt.Sprintf("  Schema:         %s/%s (enabled: %t, ttl %s)", cfg.Schema.Owner, cfg.Schema.Repo, cfg.Schema.Enabled, cfg.Schema.TTL))
		logger.Info("  DB Driver:      " + cfg.Store.Driver)
		if strings.TrimSpace(cfg.Store.URL) != "" {
			logger.Info("  DB URL:         " + cfg.Store.URL)
		} else {
			logger.Info("  DB Path:        " + cfg.Store.Path)
		}
		logger.Info(fmt.Sprintf("  Server:         %s:%d (metrics %d)", cfg.Server.Host, cfg.Server.Port, cfg.Metrics.Port))
		logger.Info("  Log Level:      " + cfg.Logging.Level)
		logger.Info("")
		logger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
