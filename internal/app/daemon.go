package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/history"
	"github.com/Aeovy/QuickTransType/internal/indicator"
	"github.com/Aeovy/QuickTransType/internal/ipc"
	"github.com/Aeovy/QuickTransType/internal/llm"
	"github.com/Aeovy/QuickTransType/internal/output"
	"github.com/Aeovy/QuickTransType/internal/pipeline"
	"github.com/Aeovy/QuickTransType/internal/session"
)

// runDaemon owns the control socket and serves IPC commands until a stop
// request or process signal.
func (r Runner) runDaemon(ctx context.Context, configPath string, settings config.Settings, logger *slog.Logger) int {
	socketPath := strings.TrimSpace(settings.Socket)
	if socketPath == "" {
		socketPath = ipc.RuntimeSocketPath()
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: daemon already running at %s\n", socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	resolvedConfigPath, err := config.ResolvePath(configPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	store := config.NewStore(logger, newFileBackend(logger, resolvedConfigPath))
	cfg := store.Load(ctx)

	dbPath := strings.TrimSpace(settings.Database)
	if dbPath == "" {
		dbPath, err = history.DefaultPath()
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}
	historyStore, err := history.Open(dbPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open history database: %v\n", err)
		logger.Error("open history database failed", "path", dbPath, "error", err.Error())
		return 1
	}
	defer func() { _ = historyStore.Close() }()

	runStartupCleanup(logger, historyStore, cfg.HistoryLimit)

	textHandler, err := output.New(logger, settings.Clipboard)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	translator := pipeline.NewTranslator(store, llm.NewClient(logger, settings.HTTPTimeout()), logger)
	recorder := newHistoryRecorder(logger, historyStore, store)
	controller := session.NewController(logger, translator, textHandler, indicator.New(settings.Notify, logger), recorder)

	daemonCtx, stopDaemon := context.WithCancel(ctx)
	defer stopDaemon()

	handler := &daemonHandler{
		logger:     logger,
		store:      store,
		history:    historyStore,
		translator: translator,
		controller: controller,
		stop:       stopDaemon,
	}

	// the watcher needs the parent directory to exist before the first save
	if err := os.MkdirAll(filepath.Dir(resolvedConfigPath), 0o755); err != nil {
		logger.Warn("create config directory failed", "error", err.Error())
	}

	// pick up external edits to the document (settings UI, editors)
	go func() {
		err := config.Watch(daemonCtx, logger, resolvedConfigPath, config.DefaultWatchDebounce, func() {
			store.Load(daemonCtx)
		})
		if err != nil && daemonCtx.Err() == nil {
			logger.Warn("config watch stopped", "error", err.Error())
		}
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(daemonCtx, listener, handler)
	}()

	logger.Info("daemon ready",
		"socket", socketPath,
		"config", resolvedConfigPath,
		"database", dbPath,
		"history_limit", cfg.HistoryLimit,
	)
	fmt.Fprintf(r.Stdout, "listening on %s\n", socketPath)

	<-daemonCtx.Done()
	if err := <-serverErrCh; err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		logger.Error("ipc server failed", "error", err.Error())
		return 1
	}

	logger.Info("daemon stopped")
	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

// runStartupCleanup applies retention before the first request: history
// beyond the configured limit and metrics older than the retention window.
func runStartupCleanup(logger *slog.Logger, store *history.Store, limit int) {
	if limit > 0 {
		if removed, err := store.CleanupHistory(int64(limit)); err != nil {
			logger.Warn("history cleanup failed", "error", err.Error())
		} else if removed > 0 {
			logger.Info("history trimmed", "removed", removed, "limit", limit)
		}
	}
	if removed, err := store.CleanupMetrics(); err != nil {
		logger.Warn("metrics cleanup failed", "error", err.Error())
	} else if removed > 0 {
		logger.Info("metrics trimmed", "removed", removed)
	}
}
