// Package profiles stores named oh-my-opencode configurations next to the
// live config and switches between them.
package profiles

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/opencode"
)

const (
	// DefaultProfile holds the stock configuration.
	DefaultProfile = "omo-default"
	// MigratedProfile holds a config found on first run.
	MigratedProfile = "user-config"

	backupTimeLayout = "2006-01-02T15-04-05"
)

var namePattern = regexp.MustCompile(`(?i)^[a-z0-9-_]+$`)

var (
	ErrNotFound    = errors.New("configuration not found")
	ErrExists      = errors.New("configuration already exists")
	ErrInvalidName = errors.New("invalid configuration name: use only letters, numbers, hyphens, and underscores")
)

// Profile is a saved configuration with its metadata.
type Profile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Created     time.Time       `json:"created"`
	Modified    time.Time       `json:"modified"`
	Config      json.RawMessage `json:"config"`
}

// Document returns the saved config as an editable document.
func (p *Profile) Document() (*omo.Document, error) {
	if p == nil {
		return nil, ErrNotFound
	}
	return omo.NewDocument(p.Config)
}

// Manager reads and writes profiles under Paths.ConfigsDir.
type Manager struct {
	Paths opencode.Paths
	Clock func() time.Time
}

// NewManager creates a Manager for paths.
func NewManager(paths opencode.Paths) *Manager {
	return &Manager{Paths: paths}
}

// ValidName reports whether name is usable as a profile name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func (m *Manager) now() time.Time {
	if m.Clock != nil {
		return m.Clock().UTC()
	}
	return time.Now().UTC()
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.Paths.ConfigsDir, name+".json")
}

// List returns saved profile names in sorted order.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.Paths.ConfigsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether a profile is saved under name.
func (m *Manager) Exists(name string) bool {
	if !ValidName(name) {
		return false
	}
	_, err := os.Stat(m.path(name))
	return err == nil
}

// Load reads a saved profile.
func (m *Manager) Load(name string) (*Profile, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	path := m.path(name)
	raw, err := os.ReadFile(path) // #nosec G304 -- name is validated against namePattern
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q at %s", ErrNotFound, name, path)
		}
		return nil, fmt.Errorf("load configuration %q: %w", name, err)
	}

	var profile Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("configuration %q has invalid JSON; check %s: %w", name, path, err)
	}
	if len(profile.Config) == 0 {
		profile.Config = json.RawMessage("{}")
	}
	return &profile, nil
}

// Save writes doc under name, keeping the original creation time when the
// profile already exists.
func (m *Manager) Save(name, description string, doc *omo.Document) (*Profile, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}
	if err := m.Paths.EnsureDirs(); err != nil {
		return nil, err
	}

	now := m.now()
	profile := &Profile{
		Name:        name,
		Description: description,
		Created:     now,
		Modified:    now,
		Config:      json.RawMessage(doc.Raw()),
	}
	if existing, err := m.Load(name); err == nil && !existing.Created.IsZero() {
		profile.Created = existing.Created
	}

	if err := m.writeProfile(m.path(name), profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Delete removes a saved profile.
func (m *Manager) Delete(name string) error {
	if !m.Exists(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.Remove(m.path(name)); err != nil {
		return fmt.Errorf("delete configuration %q: %w", name, err)
	}
	return nil
}

// Rename moves a profile to a new name. It refuses to overwrite.
func (m *Manager) Rename(oldName, newName string) error {
	if !ValidName(newName) {
		return ErrInvalidName
	}
	profile, err := m.Load(oldName)
	if err != nil {
		return err
	}
	if m.Exists(newName) {
		return fmt.Errorf("%w: %q", ErrExists, newName)
	}

	profile.Name = newName
	profile.Modified = m.now()
	if err := m.writeProfile(m.path(newName), profile); err != nil {
		return err
	}
	if err := os.Remove(m.path(oldName)); err != nil {
		return fmt.Errorf("remove old configuration %q: %w", oldName, err)
	}

	if active, err := m.Active(); err == nil && active == oldName {
		return m.SetActive(newName)
	}
	return nil
}

type activeRecord struct {
	Active string `json:"active"`
}

// Active returns the active profile name, or "" when none is recorded.
func (m *Manager) Active() (string, error) {
	raw, err := os.ReadFile(m.Paths.ActiveFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read active configuration: %w", err)
	}
	var record activeRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", nil
	}
	return record.Active, nil
}

// SetActive records name as the active profile.
func (m *Manager) SetActive(name string) error {
	if err := m.Paths.EnsureDirs(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(activeRecord{Active: name}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(m.Paths.ActiveFile, append(raw, '\n'))
}

// ReadMain loads the live oh-my-opencode config. A missing file yields an
// empty document.
func (m *Manager) ReadMain() (*omo.Document, error) {
	doc, err := omo.ReadFile(m.Paths.ConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return omo.NewDocument(nil)
		}
		return nil, err
	}
	return doc, nil
}

// WriteMain replaces the live config, first copying the current file into
// the backup directory. It returns the backup path, or "" when there was
// nothing to back up.
func (m *Manager) WriteMain(doc *omo.Document) (string, error) {
	backup, err := m.Backup("oh-my-opencode")
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(m.Paths.ConfigFile, doc.Bytes()); err != nil {
		return backup, err
	}
	return backup, nil
}

// Backup copies the live config to BackupDir/<prefix>-<timestamp>.json.
func (m *Manager) Backup(prefix string) (string, error) {
	raw, err := os.ReadFile(m.Paths.ConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read config for backup: %w", err)
	}
	if err := m.Paths.EnsureDirs(); err != nil {
		return "", err
	}
	path := filepath.Join(m.Paths.BackupDir, fmt.Sprintf("%s-%s.json", prefix, m.now().Format(backupTimeLayout)))
	if err := writeFileAtomic(path, raw); err != nil {
		return "", err
	}
	return path, nil
}

// Use writes a saved profile to the live config and marks it active.
func (m *Manager) Use(name string) (string, error) {
	profile, err := m.Load(name)
	if err != nil {
		return "", err
	}
	doc, err := profile.Document()
	if err != nil {
		return "", fmt.Errorf("configuration %q: %w", name, err)
	}
	backup, err := m.WriteMain(doc)
	if err != nil {
		return backup, err
	}
	return backup, m.SetActive(name)
}

// MigrateIfNeeded sets up profiles on first run: it saves the defaults as
// omo-default and, when a live config exists, saves it as user-config and
// makes it active. It reports whether anything was done.
func (m *Manager) MigrateIfNeeded() (bool, error) {
	names, err := m.List()
	if err != nil {
		return false, err
	}
	if len(names) > 0 {
		return false, nil
	}

	if _, err := m.Save(DefaultProfile, "Oh My Opencode default configuration", omo.DefaultDocument()); err != nil {
		return false, err
	}

	active := DefaultProfile
	if doc, err := omo.ReadFile(m.Paths.ConfigFile); err == nil {
		if _, err := m.Save(MigratedProfile, "Migrated user configuration", doc); err != nil {
			return true, err
		}
		active = MigratedProfile
	}
	return true, m.SetActive(active)
}

// Export writes a profile, metadata included, to dest.
func (m *Manager) Export(name, dest string) error {
	profile, err := m.Load(name)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encode configuration %q: %w", name, err)
	}
	return writeFileAtomic(dest, append(raw, '\n'))
}

// Import saves the file at src under name. The file may be an exported
// profile or a bare oh-my-opencode config.
func (m *Manager) Import(src, name, description string) (*Profile, error) {
	raw, err := os.ReadFile(src) // #nosec G304 -- user-supplied import path
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s is not valid JSON", src)
	}

	config := raw
	wrapped := gjson.GetBytes(raw, "config")
	if wrapped.IsObject() {
		config = []byte(wrapped.Raw)
	}
	if description == "" {
		description = gjson.GetBytes(raw, "description").String()
	}
	if description == "" {
		description = "Imported configuration"
	}

	doc, err := omo.NewDocument(config)
	if err != nil {
		return nil, err
	}
	return m.Save(name, description, doc)
}

func (m *Manager) writeProfile(path string, profile *Profile) error {
	raw, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("encode configuration %q: %w", profile.Name, err)
	}
	return writeFileAtomic(path, append(raw, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
