package app

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/hotkey"
)

// fileBackend binds the config store to the on-disk document and the system
// shortcut tables. The enabled flag is runtime-only state: disable pauses
// hotkey handling until re-enabled or daemon restart.
type fileBackend struct {
	logger   *slog.Logger
	path     string
	detector *hotkey.Detector
	enabled  atomic.Bool
}

func newFileBackend(logger *slog.Logger, path string) *fileBackend {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &fileBackend{
		logger:   logger,
		path:     path,
		detector: hotkey.NewDetector(logger),
	}
	b.enabled.Store(true)
	return b
}

func (b *fileBackend) GetConfig(context.Context) (config.Config, error) {
	loaded, err := config.Load(b.path)
	if err != nil {
		return config.Config{}, err
	}
	for _, w := range loaded.Warnings {
		b.logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}
	return loaded.Config, nil
}

func (b *fileBackend) SaveConfig(_ context.Context, cfg config.Config) error {
	return config.WriteDocument(b.path, cfg)
}

func (b *fileBackend) CheckConflicts(ctx context.Context, hk config.Hotkey) ([]string, error) {
	return b.detector.Check(ctx, hk)
}

func (b *fileBackend) GetEnabled(context.Context) (bool, error) {
	return b.enabled.Load(), nil
}

func (b *fileBackend) SetEnabled(_ context.Context, enabled bool) error {
	b.enabled.Store(enabled)
	return nil
}
