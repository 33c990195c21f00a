// Package hotkey matches key events against configured hotkeys and detects
// collisions with system keyboard shortcuts.
package hotkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// Shortcut is one named system key chord.
type Shortcut struct {
	Name      string
	Modifiers []string
	Key       string
}

// builtinShortcuts are macOS defaults that never appear in the symbolic
// hotkeys plist, which only records user overrides.
func builtinShortcuts() []Shortcut {
	return []Shortcut{
		{Name: "Spotlight Search", Modifiers: []string{config.ModifierMeta}, Key: config.KeySpace},
		{Name: "Finder Search Window", Modifiers: []string{config.ModifierMeta, config.ModifierAlt}, Key: config.KeySpace},
		{Name: "Screenshot (Full Screen)", Modifiers: []string{config.ModifierMeta, config.ModifierShift}, Key: "3"},
		{Name: "Screenshot (Selection)", Modifiers: []string{config.ModifierMeta, config.ModifierShift}, Key: "4"},
		{Name: "Screenshot and Recording Options", Modifiers: []string{config.ModifierMeta, config.ModifierShift}, Key: "5"},
	}
}

// symbolicHotkeyNames maps the AppleSymbolicHotKeys identifiers worth
// reporting to display names.
var symbolicHotkeyNames = map[string]string{
	"28":  "Screenshot (Full Screen)",
	"29":  "Screenshot to Clipboard (Full Screen)",
	"30":  "Screenshot (Selection)",
	"31":  "Screenshot to Clipboard (Selection)",
	"32":  "Mission Control",
	"33":  "Application Windows",
	"36":  "Show Desktop",
	"64":  "Spotlight Search",
	"65":  "Finder Search Window",
	"184": "Screenshot and Recording Options",
}

// Carbon modifier mask bits as stored in the symbolic hotkeys plist.
const (
	maskShift   = 1 << 17
	maskControl = 1 << 18
	maskOption  = 1 << 19
	maskCommand = 1 << 20
)

// Detector answers whether a hotkey collides with system shortcuts. On macOS
// the user's symbolic hotkey overrides are merged over the builtin table; on
// other platforms only the builtin table is consulted.
type Detector struct {
	logger    *slog.Logger
	plistPath string
	runPlist  func(ctx context.Context, path string) ([]byte, error)
}

// NewDetector builds a Detector with platform defaults.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Detector{
		logger:   logger,
		runPlist: runPlutil,
	}
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			d.plistPath = filepath.Join(home, "Library", "Preferences", "com.apple.symbolichotkeys.plist")
		}
	}
	return d
}

// Check returns the names of system shortcuts hk collides with. Consecutive
// hotkeys never collide with chord shortcuts. An unreadable plist degrades to
// the builtin table instead of failing the check.
func (d *Detector) Check(ctx context.Context, hk config.Hotkey) ([]string, error) {
	comb, ok := hk.(config.Combination)
	if !ok {
		return nil, nil
	}

	shortcuts := builtinShortcuts()
	system, err := d.systemShortcuts(ctx)
	if err != nil {
		d.logger.Warn("system shortcut table unavailable", "error", err)
	} else {
		shortcuts = append(shortcuts, system...)
	}

	var names []string
	seen := make(map[string]struct{})
	for _, sc := range shortcuts {
		if !hotkeysMatch(comb.Modifiers, comb.Key, sc.Modifiers, sc.Key) {
			continue
		}
		if _, dup := seen[sc.Name]; dup {
			continue
		}
		seen[sc.Name] = struct{}{}
		names = append(names, sc.Name)
	}
	return names, nil
}

func (d *Detector) systemShortcuts(ctx context.Context) ([]Shortcut, error) {
	if d.plistPath == "" {
		return nil, nil
	}
	out, err := d.runPlist(ctx, d.plistPath)
	if err != nil {
		return nil, err
	}
	return parseSymbolicHotkeys(out)
}

type symbolicEntry struct {
	Enabled json.RawMessage `json:"enabled"`
	Value   struct {
		Parameters []float64 `json:"parameters"`
	} `json:"value"`
}

// parseSymbolicHotkeys extracts known shortcuts from the plutil JSON form of
// com.apple.symbolichotkeys.plist. Parameters are [character, keycode, mask];
// entries without a printable character are skipped.
func parseSymbolicHotkeys(data []byte) ([]Shortcut, error) {
	var doc struct {
		AppleSymbolicHotKeys map[string]symbolicEntry `json:"AppleSymbolicHotKeys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse symbolic hotkeys: %w", err)
	}

	var shortcuts []Shortcut
	for id, entry := range doc.AppleSymbolicHotKeys {
		name, known := symbolicHotkeyNames[id]
		if !known || !entryEnabled(entry.Enabled) {
			continue
		}
		if len(entry.Value.Parameters) < 3 {
			continue
		}

		char := int(entry.Value.Parameters[0])
		if char < 32 || char > 126 {
			continue
		}
		mask := int(entry.Value.Parameters[2])
		shortcuts = append(shortcuts, Shortcut{
			Name:      name,
			Modifiers: modifiersFromMask(mask),
			Key:       string(rune(char)),
		})
	}
	return shortcuts, nil
}

// entryEnabled treats a missing enabled field as active: the plist only
// stores overrides, and an entry present without the flag is in effect.
func entryEnabled(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "true", "1":
		return true
	default:
		return false
	}
}

func modifiersFromMask(mask int) []string {
	var mods []string
	if mask&maskShift != 0 {
		mods = append(mods, config.ModifierShift)
	}
	if mask&maskControl != 0 {
		mods = append(mods, config.ModifierControl)
	}
	if mask&maskOption != 0 {
		mods = append(mods, config.ModifierAlt)
	}
	if mask&maskCommand != 0 {
		mods = append(mods, config.ModifierMeta)
	}
	return mods
}

// Matches reports whether a key event with the given key and modifiers
// triggers the combination hotkey.
func Matches(comb config.Combination, key string, modifiers []string) bool {
	return hotkeysMatch(comb.Modifiers, comb.Key, modifiers, key)
}

// hotkeysMatch compares two chords: keys case-insensitively, modifier sets
// after lowercasing and sorting.
func hotkeysMatch(aMods []string, aKey string, bMods []string, bKey string) bool {
	if !strings.EqualFold(aKey, bKey) {
		return false
	}
	a := normalizedModifiers(aMods)
	b := normalizedModifiers(bMods)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalizedModifiers(mods []string) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func runPlutil(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "plutil", "-convert", "json", "-o", "-", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("plutil %q: %w: %s", path, err, detail)
		}
		return nil, fmt.Errorf("plutil %q: %w", path, err)
	}
	return stdout.Bytes(), nil
}
