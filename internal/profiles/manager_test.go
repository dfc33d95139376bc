package profiles

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/opencode"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(opencode.NewPaths(filepath.Join(t.TempDir(), "opencode")))
	current := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	m.Clock = func() time.Time {
		current = current.Add(time.Second)
		return current
	}
	return m
}

func mustDoc(t *testing.T, raw string) *omo.Document {
	t.Helper()
	doc, err := omo.NewDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"work", "My_Config-2", "a"} {
		assert.True(t, ValidName(name), name)
	}
	for _, name := range []string{"", "has space", "../escape", "dot.json"} {
		assert.False(t, ValidName(name), name)
	}
}

func TestSaveLoadKeepsCreated(t *testing.T) {
	m := newTestManager(t)

	first, err := m.Save("work", "Work setup", mustDoc(t, `{"agents": {"oracle": {"model": "openai/gpt-5.2"}}}`))
	require.NoError(t, err)

	second, err := m.Save("work", "Work setup v2", mustDoc(t, `{"agents": {"oracle": {"model": "anthropic/claude-opus-4-5"}}}`))
	require.NoError(t, err)
	assert.Equal(t, first.Created, second.Created)
	assert.True(t, second.Modified.After(first.Modified))

	loaded, err := m.Load("work")
	require.NoError(t, err)
	assert.Equal(t, "Work setup v2", loaded.Description)

	doc, err := loaded.Document()
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-opus-4-5", doc.Get("agents.oracle.model").String())

	_, err = m.Save("bad name", "", mustDoc(t, `{}`))
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestListAndDelete(t *testing.T) {
	m := newTestManager(t)

	names, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"zeta", "alpha"} {
		_, err := m.Save(name, "", mustDoc(t, `{}`))
		require.NoError(t, err)
	}
	names, err = m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, names)

	require.NoError(t, m.Delete("alpha"))
	assert.False(t, m.Exists("alpha"))
	require.ErrorIs(t, m.Delete("alpha"), ErrNotFound)

	_, err = m.Load("alpha")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRename(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Save("old", "", mustDoc(t, `{}`))
	require.NoError(t, err)
	_, err = m.Save("taken", "", mustDoc(t, `{}`))
	require.NoError(t, err)
	require.NoError(t, m.SetActive("old"))

	require.ErrorIs(t, m.Rename("old", "taken"), ErrExists)
	require.ErrorIs(t, m.Rename("old", "bad name"), ErrInvalidName)
	require.ErrorIs(t, m.Rename("missing", "fresh"), ErrNotFound)

	require.NoError(t, m.Rename("old", "fresh"))
	assert.False(t, m.Exists("old"))

	profile, err := m.Load("fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", profile.Name)

	active, err := m.Active()
	require.NoError(t, err)
	assert.Equal(t, "fresh", active)
}

func TestUseWritesMainWithBackup(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Paths.EnsureDirs())
	require.NoError(t, os.WriteFile(m.Paths.ConfigFile, []byte(`{"agents": {}}`), 0o600))

	_, err := m.Save("work", "", mustDoc(t, `{"agents": {"explore": {"model": "opencode/grok-code"}}}`))
	require.NoError(t, err)

	backup, err := m.Use("work")
	require.NoError(t, err)
	require.NotEmpty(t, backup)
	assert.True(t, strings.HasPrefix(filepath.Base(backup), "oh-my-opencode-2026-01-15T10-30-"))

	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.JSONEq(t, `{"agents": {}}`, string(saved))

	main, err := m.ReadMain()
	require.NoError(t, err)
	assert.Equal(t, "opencode/grok-code", main.Get("agents.explore.model").String())

	active, err := m.Active()
	require.NoError(t, err)
	assert.Equal(t, "work", active)
}

func TestWriteMainWithoutExistingFile(t *testing.T) {
	m := newTestManager(t)

	backup, err := m.WriteMain(mustDoc(t, `{"google_auth": false}`))
	require.NoError(t, err)
	assert.Empty(t, backup)

	_, err = os.Stat(m.Paths.ConfigFile)
	require.NoError(t, err)
}

func TestMigrateIfNeeded(t *testing.T) {
	t.Run("WithExistingConfig", func(t *testing.T) {
		m := newTestManager(t)
		require.NoError(t, m.Paths.EnsureDirs())
		require.NoError(t, os.WriteFile(m.Paths.ConfigFile, []byte(`{"agents": {"oracle": {"model": "x/y"}}}`), 0o600))

		migrated, err := m.MigrateIfNeeded()
		require.NoError(t, err)
		assert.True(t, migrated)

		names, err := m.List()
		require.NoError(t, err)
		assert.Equal(t, []string{DefaultProfile, MigratedProfile}, names)

		active, err := m.Active()
		require.NoError(t, err)
		assert.Equal(t, MigratedProfile, active)

		again, err := m.MigrateIfNeeded()
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("FreshInstall", func(t *testing.T) {
		m := newTestManager(t)

		migrated, err := m.MigrateIfNeeded()
		require.NoError(t, err)
		assert.True(t, migrated)

		active, err := m.Active()
		require.NoError(t, err)
		assert.Equal(t, DefaultProfile, active)

		profile, err := m.Load(DefaultProfile)
		require.NoError(t, err)
		doc, err := profile.Document()
		require.NoError(t, err)
		assert.Equal(t, "openai/gpt-5.2", doc.Get("agents.oracle.model").String())
	})
}

func TestExportImport(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Save("work", "Work setup", mustDoc(t, `{"agents": {"oracle": {"model": "openai/gpt-5.2"}}}`))
	require.NoError(t, err)

	exported := filepath.Join(t.TempDir(), "work.json")
	require.NoError(t, m.Export("work", exported))

	imported, err := m.Import(exported, "copy", "")
	require.NoError(t, err)
	assert.Equal(t, "Work setup", imported.Description)
	doc, err := imported.Document()
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-5.2", doc.Get("agents.oracle.model").String())

	bare := filepath.Join(t.TempDir(), "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`{"agents": {"explore": {"model": "opencode/grok-code"}}}`), 0o600))
	imported, err = m.Import(bare, "bare", "")
	require.NoError(t, err)
	assert.Equal(t, "Imported configuration", imported.Description)
	doc, err = imported.Document()
	require.NoError(t, err)
	assert.Equal(t, "opencode/grok-code", doc.Get("agents.explore.model").String())

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o600))
	_, err = m.Import(broken, "broken", "")
	require.Error(t, err)
}

func TestMigrateCategories(t *testing.T) {
	m := newTestManager(t)

	result, err := m.Migrate()
	require.NoError(t, err)
	assert.True(t, result.Skipped)

	require.NoError(t, m.Paths.EnsureDirs())
	require.NoError(t, os.WriteFile(m.Paths.ConfigFile, []byte(`{"agents": {"explore": {"model": "opencode/grok-code"}}, "custom": 1}`), 0o600))

	result, err = m.Migrate()
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, []string{"explore"}, result.Tagged)
	assert.Equal(t, "2026-01-15", result.Marker)
	assert.Contains(t, filepath.Base(result.Backup), "oh-my-opencode-pre-migration-")

	main, err := m.ReadMain()
	require.NoError(t, err)
	assert.Equal(t, "quick", main.Get("agents.explore.category").String())
	assert.Equal(t, int64(1), main.Get("custom").Int())

	result, err = m.Migrate()
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Contains(t, result.Reason, "2026-01-15")
}

func TestLoadInvalidJSON(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Paths.EnsureDirs())
	require.NoError(t, os.WriteFile(filepath.Join(m.Paths.ConfigsDir, "broken.json"), []byte(`{`), 0o600))

	_, err := m.Load("broken")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "invalid JSON")
}
