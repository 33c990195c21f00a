package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeDesktop simulates the clipboard and keystroke delivery. A copy
// keystroke places the pending selection on the clipboard.
type fakeDesktop struct {
	mu           sync.Mutex
	clipboard    string
	selection    string
	readFailures int
	writeErr     error
	keyErr       map[keystrokeAction]error
	keystrokes   []keystrokeAction
}

func (f *fakeDesktop) run(_ context.Context, argv []string, input string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch argv[0] {
	case "read":
		if f.readFailures > 0 {
			f.readFailures--
			return "", errors.New("clipboard read failed")
		}
		return f.clipboard, nil
	case "write":
		if f.writeErr != nil {
			return "", f.writeErr
		}
		f.clipboard = input
		return "", nil
	}
	return "", fmt.Errorf("unexpected command %q", argv[0])
}

func (f *fakeDesktop) keys(_ context.Context, action keystrokeAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keystrokes = append(f.keystrokes, action)
	if err := f.keyErr[action]; err != nil {
		return err
	}
	if action == keystrokeCopy {
		f.clipboard = f.selection
	}
	return nil
}

func newTestHandler(f *fakeDesktop) *Handler {
	return &Handler{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		readArgv:  []string{"read"},
		writeArgv: []string{"write"},
		keys:      f.keys,
		run:       f.run,
		sleep:     func(context.Context, time.Duration) error { return nil },
	}
}

func TestCaptureSelectedCopiesSelection(t *testing.T) {
	desktop := &fakeDesktop{clipboard: "previous contents", selection: "translate me"}
	h := newTestHandler(desktop)

	text, err := h.Capture(context.Background(), ModeSelected)
	require.NoError(t, err)
	require.Equal(t, "translate me", text)
	require.Equal(t, []keystrokeAction{keystrokeCopy}, desktop.keystrokes)
}

func TestCaptureFullSelectsAllFirst(t *testing.T) {
	desktop := &fakeDesktop{selection: "the whole field"}
	h := newTestHandler(desktop)

	text, err := h.Capture(context.Background(), ModeFull)
	require.NoError(t, err)
	require.Equal(t, "the whole field", text)
	require.Equal(t, []keystrokeAction{keystrokeSelectAll, keystrokeCopy}, desktop.keystrokes)
}

func TestRestoreReturnsPriorClipboard(t *testing.T) {
	desktop := &fakeDesktop{clipboard: "previous contents", selection: "translate me"}
	h := newTestHandler(desktop)

	_, err := h.Capture(context.Background(), ModeSelected)
	require.NoError(t, err)
	require.Equal(t, "translate me", desktop.clipboard)

	require.NoError(t, h.Restore(context.Background()))
	require.Equal(t, "previous contents", desktop.clipboard)

	// A second restore is a no-op.
	desktop.clipboard = "changed since"
	require.NoError(t, h.Restore(context.Background()))
	require.Equal(t, "changed since", desktop.clipboard)
}

func TestCaptureCopyFailure(t *testing.T) {
	desktop := &fakeDesktop{
		clipboard: "previous contents",
		keyErr:    map[keystrokeAction]error{keystrokeCopy: errors.New("denied")},
	}
	h := newTestHandler(desktop)

	_, err := h.Capture(context.Background(), ModeSelected)
	require.Error(t, err)
	require.Contains(t, err.Error(), "copy source text")

	// The backup is still restorable after a failed capture.
	require.NoError(t, h.Restore(context.Background()))
	require.Equal(t, "previous contents", desktop.clipboard)
}

func TestCaptureProceedsWithoutBackup(t *testing.T) {
	desktop := &fakeDesktop{selection: "translate me", readFailures: 1}
	h := newTestHandler(desktop)

	text, err := h.Capture(context.Background(), ModeSelected)
	require.NoError(t, err)
	require.Equal(t, "translate me", text)

	// No backup was taken, restore leaves the clipboard alone.
	require.NoError(t, h.Restore(context.Background()))
	require.Equal(t, "translate me", desktop.clipboard)
}

func TestCommitWritesClipboardAndPastes(t *testing.T) {
	desktop := &fakeDesktop{}
	h := newTestHandler(desktop)

	require.NoError(t, h.Commit(context.Background(), "bonjour"))
	require.Equal(t, "bonjour", desktop.clipboard)
	require.Equal(t, []keystrokeAction{keystrokePaste}, desktop.keystrokes)
}

func TestCommitSkipsEmptyText(t *testing.T) {
	desktop := &fakeDesktop{clipboard: "untouched"}
	h := newTestHandler(desktop)

	require.NoError(t, h.Commit(context.Background(), ""))
	require.Equal(t, "untouched", desktop.clipboard)
	require.Empty(t, desktop.keystrokes)
}

func TestCommitPasteFailureLeavesClipboardSet(t *testing.T) {
	desktop := &fakeDesktop{
		keyErr: map[keystrokeAction]error{keystrokePaste: errors.New("no focused window")},
	}
	h := newTestHandler(desktop)

	require.NoError(t, h.Commit(context.Background(), "bonjour"))
	require.Equal(t, "bonjour", desktop.clipboard)
}

func TestCommitClipboardFailure(t *testing.T) {
	desktop := &fakeDesktop{writeErr: errors.New("wl-copy missing")}
	h := newTestHandler(desktop)

	err := h.Commit(context.Background(), "bonjour")
	require.Error(t, err)
	require.Contains(t, err.Error(), "set clipboard")
	require.Empty(t, desktop.keystrokes)
}

func TestCommitDropsCaptureBackup(t *testing.T) {
	desktop := &fakeDesktop{clipboard: "previous contents", selection: "translate me"}
	h := newTestHandler(desktop)

	_, err := h.Capture(context.Background(), ModeSelected)
	require.NoError(t, err)
	require.NoError(t, h.Commit(context.Background(), "bonjour"))

	// The translation owns the clipboard now.
	require.NoError(t, h.Restore(context.Background()))
	require.Equal(t, "bonjour", desktop.clipboard)
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{input: "selected", want: ModeSelected},
		{input: " FULL ", want: ModeFull},
		{input: "Selected", want: ModeSelected},
		{input: "", wantErr: true},
		{input: "clipboard", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) expected error, got %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestRunCommandCapturesStdoutAndWritesStdin(t *testing.T) {
	dir := t.TempDir()
	captured := filepath.Join(dir, "stdin.txt")
	script := filepath.Join(dir, "tool.sh")
	body := "#!/usr/bin/env bash\ncat > \"$1\"\nprintf 'tool output'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	out, err := runCommand(context.Background(), []string{script, captured}, "fed to stdin")
	require.NoError(t, err)
	require.Equal(t, "tool output", out)

	data, err := os.ReadFile(captured)
	require.NoError(t, err)
	require.Equal(t, "fed to stdin", string(data))
}

func TestRunCommandIncludesStderrInError(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fail.sh")
	body := "#!/usr/bin/env bash\necho 'tool exploded' >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	_, err := runCommand(context.Background(), []string{script}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "tool exploded")
}

func TestRunCommandRejectsEmptyArgv(t *testing.T) {
	_, err := runCommand(context.Background(), nil, "payload")
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}
