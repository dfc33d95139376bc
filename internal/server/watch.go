package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/observability"
)

// WatchDebounce coalesces the burst of events an editor save produces.
const WatchDebounce = 250 * time.Millisecond

// Watch reloads state whenever the file at path is written, created,
// renamed or removed. The parent directory is watched so atomic
// rename-over writes are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, state *State) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close() // nolint:errcheck // best-effort cleanup

	dir := filepath.Dir(path)
	target := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		if err := state.Reload(ctx); err == nil {
			logInfo("Reloaded after config change", zap.String("file", path))
		}
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(WatchDebounce, reload)
			} else {
				timer.Reset(WatchDebounce)
			}
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger := observability.ServerLogger; logger != nil {
				logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	}
}

func logInfo(msg string, fields ...zap.Field) {
	if logger := observability.ServerLogger; logger != nil {
		logger.Info(msg, fields...)
	}
}
