package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/llm"
	"github.com/Aeovy/QuickTransType/internal/pipeline"
	"github.com/Aeovy/QuickTransType/internal/session"
)

// historyRecorder persists session outcomes: every attempt becomes a metric
// row, successful attempts also become history rows, and each insert trims
// history back to the configured limit.
type historyRecorder struct {
	logger  *slog.Logger
	history *history.Store
	config  *config.Store
}

func newHistoryRecorder(logger *slog.Logger, historyStore *history.Store, configStore *config.Store) *historyRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &historyRecorder{logger: logger, history: historyStore, config: configStore}
}

func (r *historyRecorder) Record(_ context.Context, entry session.Entry) error {
	success := entry.Err == nil && !entry.Cancelled

	errorType := ""
	chars := int64(0)
	if success {
		chars = int64(len([]rune(entry.SourceText)))
	} else {
		errorType = classifyError(entry)
	}

	if err := r.history.RecordMetric(string(entry.Mode), entry.Duration, success, errorType, chars); err != nil {
		r.logger.Warn("record metric failed", "error", err.Error())
	}
	if !success {
		return nil
	}

	if _, err := r.history.InsertTranslation(entry.SourceText, entry.TranslatedText, "", entry.TargetLanguage, string(entry.Mode)); err != nil {
		return fmt.Errorf("insert translation: %w", err)
	}

	if cfg, ok := r.config.Current(); ok && cfg.HistoryLimit > 0 {
		if _, err := r.history.CleanupHistory(int64(cfg.HistoryLimit)); err != nil {
			r.logger.Warn("history cleanup failed", "error", err.Error())
		}
	}
	return nil
}

// classifyError buckets a failure for the metrics error distribution.
func classifyError(entry session.Entry) string {
	if entry.Cancelled || errors.Is(entry.Err, context.Canceled) {
		return "cancelled"
	}
	switch {
	case errors.Is(entry.Err, session.ErrNothingToTranslate):
		return "empty_selection"
	case errors.Is(entry.Err, session.ErrEmptyTranslation):
		return "empty_translation"
	case errors.Is(entry.Err, pipeline.ErrNotConfigured):
		return "config"
	}

	var apiErr *llm.APIError
	if errors.As(entry.Err, &apiErr) {
		return "api"
	}

	var netErr net.Error
	if errors.Is(entry.Err, context.DeadlineExceeded) || errors.As(entry.Err, &netErr) {
		return "network"
	}
	return "other"
}
