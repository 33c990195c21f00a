package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/stretchr/testify/require"
)

func TestFileBackendDefaultsWhenDocumentMissing(t *testing.T) {
	backend := newFileBackend(nil, filepath.Join(t.TempDir(), "config.json"))

	cfg, err := backend.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestFileBackendRoundTripsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	backend := newFileBackend(nil, path)

	cfg := config.Default()
	cfg.LLM.Model = "qwen-max"
	cfg.HistoryLimit = 42
	require.NoError(t, backend.SaveConfig(context.Background(), cfg))

	loaded, err := backend.GetConfig(context.Background())
	require.NoError(t, err)
	require.Equal(t, "qwen-max", loaded.LLM.Model)
	require.Equal(t, 42, loaded.HistoryLimit)
}

func TestFileBackendEnabledFlagIsRuntimeOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	backend := newFileBackend(nil, path)

	enabled, err := backend.GetEnabled(context.Background())
	require.NoError(t, err)
	require.True(t, enabled)

	require.NoError(t, backend.SetEnabled(context.Background(), false))
	enabled, err = backend.GetEnabled(context.Background())
	require.NoError(t, err)
	require.False(t, enabled)

	// the flag does not survive a restart
	fresh := newFileBackend(nil, path)
	enabled, err = fresh.GetEnabled(context.Background())
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestFileBackendChecksConflicts(t *testing.T) {
	backend := newFileBackend(nil, filepath.Join(t.TempDir(), "config.json"))

	conflicts, err := backend.CheckConflicts(context.Background(), config.Combination{
		Modifiers: []string{config.ModifierMeta},
		Key:       config.KeySpace,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Spotlight Search"}, conflicts)

	conflicts, err = backend.CheckConflicts(context.Background(), config.Combination{
		Modifiers: []string{config.ModifierControl},
		Key:       "k",
	})
	require.NoError(t, err)
	require.Empty(t, conflicts)
}
