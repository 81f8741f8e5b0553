package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefault tests the built-in configuration.
func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "storage", cfg.Workspace)
	assert.Equal(t, 10, cfg.Budget)
	assert.Equal(t, 5, cfg.MinNewEvents)
	assert.Equal(t, 20, cfg.TailN)
	assert.Equal(t, "crystals", cfg.CrystalsDir)
	assert.Equal(t, "packets", cfg.PacketsDir)
	assert.Equal(t, "exports", cfg.ExportsDir)
	assert.Empty(t, cfg.Journal)
	require.NoError(t, cfg.Validate())
}

// TestLoad_EmptyPath tests that no file means defaults.
func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// TestLoad_OverridesDefaults tests that file keys override and omitted
// keys keep their defaults.
func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"workspace: /tmp/ws\nbudget: 3\njournal: sessions.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ws", cfg.Workspace)
	assert.Equal(t, 3, cfg.Budget)
	assert.Equal(t, "sessions.db", cfg.Journal)
	assert.Equal(t, 5, cfg.MinNewEvents, "omitted keys keep defaults")
	assert.Equal(t, "crystals", cfg.CrystalsDir)
}

// TestLoad_MissingFile tests the error for an explicit but unreadable
// path.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// TestLoad_MalformedYAML tests the parse error path.
func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget: [not an int\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

// TestValidate tests the invariants.
func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Workspace = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Budget = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MinNewEvents = -1
	require.Error(t, cfg.Validate())
}

// TestLoad_RejectsInvalidFile tests that validation runs on loaded
// files.
func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget: -5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
