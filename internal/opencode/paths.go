// Package opencode locates the opencode configuration directory and reads
// the host's own settings from it.
package opencode

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"github.com/tidwall/gjson"
)

const (
	ConfigFileName     = "oh-my-opencode.json"
	HostConfigFileName = "opencode.json"
	ActiveFileName     = "active-config.json"
	BackupDirName      = "backups"
	ConfigsDirName     = "configs"
)

// Paths are the files and directories this tool reads and writes.
type Paths struct {
	ConfigDir      string `json:"config_dir"`
	ConfigFile     string `json:"config_file"`
	BackupDir      string `json:"backup_dir"`
	ConfigsDir     string `json:"configs_dir"`
	ActiveFile     string `json:"active_file"`
	HostConfigFile string `json:"host_config_file"`
}

// NewPaths derives every path from the opencode config directory.
func NewPaths(configDir string) Paths {
	return Paths{
		ConfigDir:      configDir,
		ConfigFile:     filepath.Join(configDir, ConfigFileName),
		BackupDir:      filepath.Join(configDir, BackupDirName),
		ConfigsDir:     filepath.Join(configDir, ConfigsDirName),
		ActiveFile:     filepath.Join(configDir, ActiveFileName),
		HostConfigFile: filepath.Join(configDir, HostConfigFileName),
	}
}

// DefaultConfigDir returns ~/.config/opencode.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", errors.New("home directory is not set; it is required to locate opencode configuration")
	}
	return filepath.Join(home, ".config", "opencode"), nil
}

// Validate reports missing fields.
func (p Paths) Validate() error {
	if p.ConfigDir == "" {
		return errors.New("opencode config dir is required")
	}
	return nil
}

// EnsureDirs creates the backup and profile directories.
func (p Paths) EnsureDirs() error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, dir := range []string{p.ConfigDir, p.BackupDir, p.ConfigsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// SystemDefault reads the top-level "model" from the host opencode.json,
// which may contain comments and trailing commas. A missing file yields "".
func SystemDefault(path string) (string, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path comes from resolved config paths
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return gjson.GetBytes(standard, "model").String(), nil
}

// SystemDefaultFunc wraps SystemDefault as a resolver getter. Read errors
// are passed to onError, when set, and treated as unset.
func SystemDefaultFunc(path string, onError func(error)) func() string {
	return func() string {
		model, err := SystemDefault(path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return ""
		}
		return model
	}
}
