package output

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/Aeovy/QuickTransType/internal/hypr"
)

type keystrokeAction string

const (
	keystrokeCopy      keystrokeAction = "copy"
	keystrokePaste     keystrokeAction = "paste"
	keystrokeSelectAll keystrokeAction = "select-all"
)

// keystroker delivers a synthetic edit keystroke to the focused window.
type keystroker func(ctx context.Context, action keystrokeAction) error

func platformKeystroker(run commandRunner) (keystroker, error) {
	switch runtime.GOOS {
	case "darwin":
		return func(ctx context.Context, action keystrokeAction) error {
			return darwinKeystroke(ctx, run, action)
		}, nil
	case "linux":
		return hyprKeystroke, nil
	}
	return nil, fmt.Errorf("no keystroke backend for %s", runtime.GOOS)
}

var darwinLetters = map[keystrokeAction]string{
	keystrokeCopy:      "c",
	keystrokePaste:     "v",
	keystrokeSelectAll: "a",
}

func darwinKeystroke(ctx context.Context, run commandRunner, action keystrokeAction) error {
	letter, ok := darwinLetters[action]
	if !ok {
		return fmt.Errorf("unknown keystroke action %q", action)
	}

	script := fmt.Sprintf(`tell application "System Events" to keystroke %q using command down`, letter)
	if _, err := run(ctx, []string{"osascript", "-e", script}, ""); err != nil {
		return fmt.Errorf("keystroke cmd+%s (is Accessibility permission granted?): %w", letter, err)
	}
	return nil
}

var hyprShortcuts = map[keystrokeAction]string{
	keystrokeCopy:      "CTRL,C",
	keystrokePaste:     "CTRL,V",
	keystrokeSelectAll: "CTRL,A",
}

func hyprKeystroke(ctx context.Context, action keystrokeAction) error {
	shortcut, ok := hyprShortcuts[action]
	if !ok {
		return fmt.Errorf("unknown keystroke action %q", action)
	}

	window, err := activeWindowWithRetry(ctx, 5, 10*time.Millisecond)
	if err != nil {
		return err
	}

	payload, err := buildShortcutPayload(shortcut, window.Address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(ctx, payload)
}

func buildShortcutPayload(shortcut string, windowAddress string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", fmt.Errorf("shortcut cannot be empty")
	}

	address := strings.TrimSpace(windowAddress)
	if address == "" {
		return "", fmt.Errorf("active window address is required")
	}

	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}

func activeWindowWithRetry(ctx context.Context, attempts int, delay time.Duration) (hypr.ActiveWindow, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		window, err := hypr.QueryActiveWindow(ctx)
		if err == nil {
			return window, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return hypr.ActiveWindow{}, ctx.Err()
		case <-time.After(delay):
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("active window unavailable")
	}
	return hypr.ActiveWindow{}, fmt.Errorf("resolve active window: %w", lastErr)
}
