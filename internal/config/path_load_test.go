package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	explicit := "/tmp/custom-config.json"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "QuickTransType", "config.json"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "QuickTransType", "config.json"), resolved)
}

func TestResolveSettingsPathSharesConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	resolved, err := ResolveSettingsPath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "QuickTransType", "settings.toml"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingDocumentParsesAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	contents := `
{
  // local override for testing
  "llm": {
    "api_key": "sk-test",
    "model": "gpt-4o"
  },
  "history_limit": 50
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "gpt-4o", loaded.Config.LLM.Model)
	require.Equal(t, "sk-test", loaded.Config.LLM.APIKey)
	require.Equal(t, 50, loaded.Config.HistoryLimit)
	require.Empty(t, loaded.Warnings)
}

func TestLoadInvalidDocumentFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"llm": {"temperature": 9}}`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "temperature")
}

func TestWriteDocumentRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.LLM.APIKey = "sk-roundtrip"
	cfg.Hotkey.SelectedMode = Combination{Modifiers: []string{ModifierMeta, ModifierShift}, Key: "T"}
	cfg.Hotkey.FullMode = Consecutive{Key: "Control", Count: 4}

	require.NoError(t, WriteDocument(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded.Config)
}

func TestWriteDocumentRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.HistoryLimit = -1

	err := WriteDocument(path, cfg)
	require.Error(t, err)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}
