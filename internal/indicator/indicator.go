// Package indicator surfaces translation progress to the user: a visual
// notification plus short audio cues.
package indicator

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/hypr"
)

// Backends for the visual notification surface.
const (
	backendHypr      = "hypr"
	backendDesktop   = "desktop"
	backendOsascript = "osascript"
)

// Notifier is the runtime notification controller. It routes visual output
// through hyprctl, desktop DBus or osascript depending on settings, and
// plays audio cues through PulseAudio.
type Notifier struct {
	cfg      config.NotifySettings
	logger   *slog.Logger
	backend  string
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	errorActive           bool
	soundMu               sync.Mutex
}

// New creates a Notifier from settings.
func New(cfg config.NotifySettings, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		backend:  resolveBackend(cfg.Backend),
		messages: notifierMessagesFromEnv(),
	}
}

func resolveBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case backendDesktop:
		return backendDesktop
	case backendOsascript:
		return backendOsascript
	case backendHypr:
		return backendHypr
	}
	if runtime.GOOS == "darwin" {
		return backendOsascript
	}
	return backendHypr
}

// ShowTranslating signals that a translation is in flight. It stays up until
// Hide or ShowError replaces it.
func (n *Notifier) ShowTranslating(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	n.errorActive = false
	n.mu.Unlock()
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1, 300000, "rgb(cba6f7)", n.messages.translating)
	})
}

// ShowError replaces any progress notification with an error message and
// plays the error cue. The error keeps its own timeout; the next Hide will
// not dismiss it.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	n.run(ctx, n.dismiss)
	n.mu.Lock()
	n.errorActive = true
	n.mu.Unlock()
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 3, timeout, "rgb(f38ba8)", text)
	})
}

// CueComplete emits the successful-commit cue.
func (n *Notifier) CueComplete(context.Context) {
	n.playCue(cueComplete)
}

// CueCancel emits the cancel cue.
func (n *Notifier) CueCancel(context.Context) {
	n.playCue(cueCancel)
}

// Hide dismisses the progress notification. After ShowError it is a one-shot
// no-op so the error message outlives session cleanup.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.mu.Lock()
	skip := n.errorActive
	n.errorActive = false
	n.mu.Unlock()
	if skip {
		return
	}
	n.run(ctx, n.dismiss)
}

// notify dispatches visual output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	switch n.backend {
	case backendDesktop:
		return n.notifyDesktop(ctx, timeoutMS, text)
	case backendOsascript:
		return osascriptNotify(ctx, n.appName(), text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes visual output from the configured backend. Notification
// Center handles its own dismissal on darwin.
func (n *Notifier) dismiss(ctx context.Context) error {
	switch n.backend {
	case backendDesktop:
		return n.dismissDesktop(ctx)
	case backendOsascript:
		return nil
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	id, err := desktopNotify(ctx, n.appName(), replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

func (n *Notifier) appName() string {
	if name := strings.TrimSpace(n.cfg.DesktopAppName); name != "" {
		return name
	}
	return "QuickTransType"
}

// run executes a notification operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("notification dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.Sound.Enable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := emitCue(kind, n.cfg.Sound); err != nil {
			n.log("audio cue failed", err)
		}
	}()
}

// log emits debug-only notifier failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
