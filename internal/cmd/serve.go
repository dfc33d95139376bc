package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/appid"
	"github.com/agentcfg/agentcfg/internal/config"
	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/server"
	"github.com/agentcfg/agentcfg/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errors.New("telemetry system not initialized")
	}
	return nil
}

// identityHealthChecker validates app identity metadata
type identityHealthChecker struct {
	identity *appidentity.Identity
}

func (i identityHealthChecker) CheckHealth(context.Context) error {
	return appid.Validate(i.identity)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve model resolution over HTTP",
	Long: `Serve resolution, validation and catalog endpoints over HTTP.

The served snapshot (model catalog, oh-my-opencode config, requirement
tables) is rebuilt when oh-my-opencode.json changes, on SIGHUP, and on
POST /v1/reload. A failed rebuild keeps serving the previous snapshot.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload config and rebuild the snapshot`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
	serveCmd.Flags().Bool("watch", true, "rebuild the snapshot when oh-my-opencode.json changes")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.watch_config", serveCmd.Flags().Lookup("watch"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	e, err := loadEnv(ctx, true)
	if err != nil {
		return err
	}

	observability.InitServerLogger(identity.BinaryName, observability.ServerLogOptions{
		Level:     e.cfg.Logging.Level,
		Namespace: namespace,
		ConfigDir: e.paths.ConfigDir,
	})
	logger := observability.ServerLogger

	metricsPort := e.cfg.Metrics.Port
	if metricsPort == 0 {
		metricsPort = observability.DefaultMetricsPort
	}
	if e.cfg.Metrics.Enabled {
		if err := observability.InitMetrics(namespace, metricsPort); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return apperrors.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	host, port := e.cfg.Server.Host, e.cfg.Server.Port
	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("host", host),
		zap.Int("port", port),
		zap.Int("metrics_port", observability.GetMetricsPort()),
		zap.String("omo_config", e.paths.ConfigFile))

	state := server.NewState(snapshotLoader(e))
	if err := state.Reload(ctx); err != nil {
		// Readiness reports the failure; the server still starts so a later
		// reload can recover.
		logger.Warn("Initial snapshot failed", zap.Error(err))
	}

	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("snapshot", state)
	if e.store != nil {
		db := e.store
		hm.RegisterChecker("store", handlers.CheckerFunc(func(ctx context.Context) error {
			_, err := db.Version(ctx)
			return err
		}))
	}
	if e.cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}
	hm.RegisterLivenessChecker("app_identity", identityHealthChecker{identity: identity})

	srv := server.New(server.Options{
		Host:         host,
		Port:         port,
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout,
		IdleTimeout:  e.cfg.Server.IdleTimeout,
		State:        state,
		Health:       hm,
		Build: handlers.BuildInfo{
			Version:   versionInfo.Version,
			Commit:    versionInfo.Commit,
			BuildDate: versionInfo.BuildDate,
		},
		Identity:   identity,
		Workers:    e.cfg.Workers,
		UIModel:    e.cfg.Resolve.UIModel,
		AdminToken: strings.TrimSpace(os.Getenv(appid.EnvName(identity, "ADMIN_TOKEN"))),
	})

	shutdownTimeout := e.cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		cancel()
		e.Close()
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancelShutdown := context.WithTimeout(ctx, shutdownTimeout)
		defer cancelShutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperrors.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading config and snapshot")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				metrics.RecordConfigReload(false)
				return apperrors.WrapConfigInvalid(ctx, err, "config reload failed")
			}
		}
		if err := state.Reload(ctx); err != nil {
			return apperrors.FromLoadError(ctx, err)
		}
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)

	if e.cfg.Server.WatchConfig {
		go func() {
			err := server.Watch(ctx, e.paths.ConfigFile, state)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	metrics.SetServerStartTime(time.Now().Unix())
	go func() {
		logger.Info("Starting HTTP server...", zap.String("addr", srv.Addr()))
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return apperrors.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// snapshotLoader rebuilds everything a resolution reads. The opencode config
// is re-read each time so edits made outside the process are seen.
func snapshotLoader(e *env) server.LoadFunc {
	return func(ctx context.Context) (*server.Snapshot, error) {
		cur := *e
		if cfg, err := config.Load(ctx); err == nil {
			cur.cfg = cfg
		} else {
			logWarn("Config reload failed; using previous settings", zap.Error(err))
		}

		catalogSnapshot, err := cur.loadCatalog(ctx, false)
		metrics.RecordCatalogLoad(catalogSource(catalogSnapshot), err == nil)
		if err != nil {
			return nil, err
		}
		_, omoCfg, err := cur.readConfig()
		if err != nil {
			return nil, apperrors.WrapConfigInvalid(ctx, err, fmt.Sprintf("cannot read %s", cur.paths.ConfigFile))
		}
		tables, tag := cur.loadTables(ctx)

		return &server.Snapshot{
			Catalog:   catalogSnapshot,
			Config:    omoCfg,
			Resolver:  cur.resolver(tables),
			SchemaTag: tag,
		}, nil
	}
}
