package profiles

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/agentcfg/agentcfg/internal/omo"
)

// MigrationResult describes a categories migration of the live config.
type MigrationResult struct {
	Skipped bool     `json:"skipped"`
	Reason  string   `json:"reason,omitempty"`
	Backup  string   `json:"backup,omitempty"`
	Tagged  []string `json:"tagged,omitempty"`
	Marker  string   `json:"marker,omitempty"`
}

// Migrate moves the live config onto categories once. The current file is
// copied to a pre-migration backup before it is rewritten.
func (m *Manager) Migrate() (*MigrationResult, error) {
	doc, err := omo.ReadFile(m.Paths.ConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MigrationResult{Skipped: true, Reason: "no oh-my-opencode config found"}, nil
		}
		return nil, err
	}

	cfg, err := doc.Config()
	if err != nil {
		return nil, err
	}
	if !omo.NeedsCategoryMigration(cfg) {
		return &MigrationResult{Skipped: true, Reason: "already migrated on " + cfg.Meta.MigratedToCategories}, nil
	}

	backup, err := m.Backup("oh-my-opencode-pre-migration")
	if err != nil {
		return nil, fmt.Errorf("create pre-migration backup: %w", err)
	}

	marker := m.now().Format("2006-01-02")
	tagged, err := doc.MigrateCategories(marker)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(m.Paths.ConfigFile, doc.Bytes()); err != nil {
		return nil, fmt.Errorf("write migrated config: %w", err)
	}

	return &MigrationResult{Backup: backup, Tagged: tagged, Marker: marker}, nil
}
