// Package output moves text between the focused application and the daemon
// through the system clipboard.
package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// Mode selects how Capture grabs source text.
type Mode string

const (
	// ModeSelected copies the current selection.
	ModeSelected Mode = "selected"
	// ModeFull selects the whole input field first, then copies it.
	ModeFull Mode = "full"
)

// ParseMode validates a mode string from CLI arguments or IPC payloads.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSelected:
		return ModeSelected, nil
	case ModeFull:
		return ModeFull, nil
	}
	return "", fmt.Errorf("unknown translate mode %q (expected selected or full)", s)
}

// The desktop owns the clipboard; after a synthetic copy it needs time to
// observe the new contents before a read sees them.
const (
	keystrokeSettle     = 50 * time.Millisecond
	clipboardSettle     = 150 * time.Millisecond
	clipboardCmdTimeout = 2 * time.Second
)

// Handler captures source text from and commits translated text to the
// focused application. It preserves the user's clipboard across a capture so
// a failed translation can put it back.
type Handler struct {
	logger    *slog.Logger
	readArgv  []string
	writeArgv []string
	keys      keystroker
	run       commandRunner
	sleep     func(context.Context, time.Duration) error

	mu        sync.Mutex
	backup    string
	hasBackup bool
}

// New builds a Handler for the current platform. Settings overrides replace
// the default clipboard read/write commands.
func New(logger *slog.Logger, clipboard config.ClipboardSettings) (*Handler, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	readArgv, err := clipboard.PasteArgv()
	if err != nil {
		return nil, fmt.Errorf("clipboard paste command: %w", err)
	}
	writeArgv, err := clipboard.CopyArgv()
	if err != nil {
		return nil, fmt.Errorf("clipboard copy command: %w", err)
	}
	if len(readArgv) == 0 {
		readArgv = defaultReadArgv()
	}
	if len(writeArgv) == 0 {
		writeArgv = defaultWriteArgv()
	}
	if len(readArgv) == 0 || len(writeArgv) == 0 {
		return nil, fmt.Errorf("no clipboard commands for %s; set [clipboard] overrides in settings.toml", runtime.GOOS)
	}

	keys, err := platformKeystroker(runCommand)
	if err != nil {
		return nil, err
	}

	return &Handler{
		logger:    logger,
		readArgv:  readArgv,
		writeArgv: writeArgv,
		keys:      keys,
		run:       runCommand,
		sleep:     waitFor,
	}, nil
}

// Capture grabs source text via a synthetic copy and returns it. The prior
// clipboard contents are saved first so Restore can undo the capture.
func (h *Handler) Capture(ctx context.Context, mode Mode) (string, error) {
	prior, err := h.readClipboard(ctx)
	h.mu.Lock()
	h.backup, h.hasBackup = prior, err == nil
	h.mu.Unlock()
	if err != nil {
		h.logger.Debug("clipboard backup unavailable", "error", err.Error())
	}

	if mode == ModeFull {
		if err := h.keys(ctx, keystrokeSelectAll); err != nil {
			return "", fmt.Errorf("select all: %w", err)
		}
		if err := h.sleep(ctx, keystrokeSettle); err != nil {
			return "", err
		}
	}

	if err := h.keys(ctx, keystrokeCopy); err != nil {
		return "", fmt.Errorf("copy source text: %w", err)
	}
	if err := h.sleep(ctx, clipboardSettle); err != nil {
		return "", err
	}

	text, err := h.readClipboard(ctx)
	if err != nil {
		return "", fmt.Errorf("read captured text: %w", err)
	}
	return text, nil
}

// Commit places the translation on the clipboard and dispatches a paste. A
// paste failure is logged, not returned: the text is already on the
// clipboard and the user can paste it by hand.
func (h *Handler) Commit(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	if err := h.writeClipboard(ctx, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	// The clipboard now intentionally holds the translation; the capture
	// backup no longer applies.
	h.mu.Lock()
	h.backup, h.hasBackup = "", false
	h.mu.Unlock()

	if err := h.sleep(ctx, keystrokeSettle); err != nil {
		return err
	}
	if err := h.keys(ctx, keystrokePaste); err != nil {
		h.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
	}
	return nil
}

// Restore puts the pre-capture clipboard contents back. Call it when a
// translation fails after Capture so the user keeps what they had copied.
func (h *Handler) Restore(ctx context.Context) error {
	h.mu.Lock()
	backup, ok := h.backup, h.hasBackup
	h.backup, h.hasBackup = "", false
	h.mu.Unlock()

	if !ok {
		return nil
	}
	if err := h.writeClipboard(ctx, backup); err != nil {
		return fmt.Errorf("restore clipboard: %w", err)
	}
	return nil
}

func (h *Handler) readClipboard(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, clipboardCmdTimeout)
	defer cancel()
	return h.run(ctx, h.readArgv, "")
}

func (h *Handler) writeClipboard(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, clipboardCmdTimeout)
	defer cancel()
	_, err := h.run(ctx, h.writeArgv, text)
	return err
}

func defaultReadArgv() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"pbpaste"}
	case "linux":
		return []string{"wl-paste", "--no-newline"}
	}
	return nil
}

func defaultWriteArgv() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"pbcopy"}
	case "linux":
		return []string{"wl-copy"}
	}
	return nil
}

// RequiredTools lists the external executables the platform backend invokes,
// for preflight checks.
func RequiredTools() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"pbpaste", "pbcopy", "osascript"}
	case "linux":
		return []string{"wl-paste", "wl-copy", "hyprctl"}
	}
	return nil
}

// commandRunner executes argv, feeding input to stdin when non-empty, and
// returns captured stdout.
type commandRunner func(ctx context.Context, argv []string, input string) (string, error)

func runCommand(ctx context.Context, argv []string, input string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		trimmed := strings.TrimSpace(stderr.String())
		if trimmed == "" {
			return "", fmt.Errorf("%s failed: %w", argv[0], err)
		}
		return "", fmt.Errorf("%s failed: %w (%s)", argv[0], err, trimmed)
	}
	return stdout.String(), nil
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
