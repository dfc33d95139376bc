package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

// ErrNotReady is returned until the first snapshot loads.
var ErrNotReady = errors.New("resolution snapshot not loaded")

// Snapshot is everything one resolution request reads. A snapshot is never
// mutated after it is published.
type Snapshot struct {
	Catalog  *catalog.Snapshot
	Config   *omo.Config
	Resolver *resolve.Resolver
	// SchemaTag is the upstream schema overlaid on the tables, or "".
	SchemaTag string
	LoadedAt  time.Time
}

// Available returns the catalog's model ids.
func (s *Snapshot) Available() []string {
	if s == nil || s.Catalog == nil {
		return nil
	}
	return s.Catalog.IDs()
}

// LoadFunc builds a fresh snapshot.
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// State holds the current snapshot. A failed reload keeps serving the
// previous one.
type State struct {
	load LoadFunc

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
}

// NewState creates a State that loads snapshots with load.
func NewState(load LoadFunc) *State {
	return &State{load: load}
}

// Reload builds and publishes a new snapshot.
func (s *State) Reload(ctx context.Context) error {
	if s == nil || s.load == nil {
		return errors.New("snapshot loader not configured")
	}

	snapshot, err := s.load(ctx)
	if err == nil && snapshot == nil {
		err = errors.New("snapshot loader returned nothing")
	}
	metrics.RecordConfigReload(err == nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		if logger := observability.ServerLogger; logger != nil {
			logger.Warn("Snapshot reload failed; keeping previous snapshot",
				zap.Bool("has_previous", s.current != nil),
				zap.Error(err))
		}
		return fmt.Errorf("reload snapshot: %w", err)
	}

	if snapshot.LoadedAt.IsZero() {
		snapshot.LoadedAt = time.Now().UTC()
	}
	s.current = snapshot
	metrics.SetCatalogModels(len(snapshot.Available()))
	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Snapshot loaded",
			zap.Int("models", len(snapshot.Available())),
			zap.String("schema_tag", snapshot.SchemaTag))
	}
	return nil
}

// Current returns the published snapshot.
func (s *State) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		if s.lastErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotReady, s.lastErr)
		}
		return nil, ErrNotReady
	}
	return s.current, nil
}

// SchemaTag reports the current snapshot's upstream schema tag.
func (s *State) SchemaTag() string {
	snapshot, err := s.Current()
	if err != nil {
		return ""
	}
	return snapshot.SchemaTag
}

// CheckHealth fails until a snapshot with at least one model is published.
func (s *State) CheckHealth(context.Context) error {
	snapshot, err := s.Current()
	if err != nil {
		return err
	}
	if len(snapshot.Available()) == 0 {
		return catalog.ErrEmptyCatalog
	}
	return nil
}
