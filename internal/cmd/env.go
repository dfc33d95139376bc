package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/config"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/opencode"
	"github.com/agentcfg/agentcfg/internal/profiles"
	"github.com/agentcfg/agentcfg/internal/requirements"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/store"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

// env is what a command needs to resolve models: loaded config, opencode
// paths and, when it opens, the local store used as a cache.
type env struct {
	cfg   *config.Config
	paths opencode.Paths
	store *store.Store
}

// loadEnv loads config and, with withStore, opens the store. A store that
// cannot be opened only disables caching.
func loadEnv(ctx context.Context, withStore bool) (*env, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	paths, err := cfg.OpencodePaths()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, paths: paths}
	if withStore {
		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			logWarn("Local store unavailable; caching disabled", zap.Error(err))
		} else {
			e.store = db
		}
	}
	return e, nil
}

func (e *env) Close() {
	if e != nil && e.store != nil {
		_ = e.store.Close()
	}
}

func (e *env) catalogLoader() *catalog.Loader {
	loader := &catalog.Loader{
		Binary:   e.cfg.OpenCode.Binary,
		Args:     e.cfg.OpenCode.Args,
		Timeout:  e.cfg.OpenCode.Timeout,
		CacheTTL: e.cfg.Catalog.CacheTTL,
	}
	if e.store != nil && e.cfg.Catalog.UseCache {
		loader.Cache = e.store
	}
	return loader
}

func (e *env) loadCatalog(ctx context.Context, refresh bool) (*catalog.Snapshot, error) {
	snapshot, err := e.catalogLoader().Load(ctx, refresh)
	if err != nil {
		return nil, err
	}
	logDebug("Model catalog loaded",
		zap.Int("models", len(snapshot.Models)),
		zap.Bool("from_cache", snapshot.FromCache))
	return snapshot, nil
}

func (e *env) schemaClient() *upstream.Client {
	client := &upstream.Client{
		HTTP:    &http.Client{Timeout: e.cfg.Schema.Timeout},
		Owner:   e.cfg.Schema.Owner,
		Repo:    e.cfg.Schema.Repo,
		APIBase: e.cfg.Schema.APIBase,
		RawBase: e.cfg.Schema.RawBase,
		TTL:     e.cfg.Schema.TTL,
		Token:   strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
	}
	if e.store != nil {
		client.Cache = e.store
	}
	return client
}

// loadTables overlays the cached upstream schema on the built-in tables.
// It returns the schema tag, or "" when the built-in tables are used.
func (e *env) loadTables(ctx context.Context) (*requirements.Tables, string) {
	base := requirements.Builtin()
	if !e.cfg.Schema.Enabled || e.store == nil {
		return base, ""
	}

	client := e.schemaClient()
	tables, _, err := client.Tables(ctx, base)
	if err != nil {
		if !errors.Is(err, upstream.ErrNoSchema) {
			logWarn("Cached upstream schema unusable; using built-in requirement tables", zap.Error(err))
		}
		return base, ""
	}
	record, err := client.Cached(ctx)
	if err != nil {
		return tables, ""
	}
	return tables, record.Tag
}

func (e *env) resolver(tables *requirements.Tables) *resolve.Resolver {
	return resolve.New(tables, opencode.SystemDefaultFunc(e.paths.HostConfigFile, func(err error) {
		logWarn("Cannot read opencode system default model", zap.Error(err))
	}))
}

func (e *env) manager() *profiles.Manager {
	return profiles.NewManager(e.paths)
}

// readConfig loads the live oh-my-opencode document and its typed view.
func (e *env) readConfig() (*omo.Document, *omo.Config, error) {
	doc, err := e.manager().ReadMain()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := doc.Config()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", e.paths.ConfigFile, err)
	}
	return doc, cfg, nil
}

func (e *env) uiModel(flag string) string {
	if v := strings.TrimSpace(flag); v != "" {
		return v
	}
	return e.cfg.Resolve.UIModel
}

func logDebug(msg string, fields ...zap.Field) {
	if logger := observability.Logger(); logger != nil {
		logger.Debug(msg, fields...)
	}
}

func logWarn(msg string, fields ...zap.Field) {
	if logger := observability.Logger(); logger != nil {
		logger.Warn(msg, fields...)
	}
}

func logInfo(msg string, fields ...zap.Field) {
	if logger := observability.Logger(); logger != nil {
		logger.Info(msg, fields...)
	}
}
