package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Settings configure the daemon process itself: socket placement, history
// database, logging, external command overrides. They are deliberately
// separate from the user configuration document, which describes translation
// behavior; settings change how the daemon runs, not what it does.
type Settings struct {
	Socket         string            `toml:"socket"`
	Database       string            `toml:"database"`
	HTTPTimeoutSec int               `toml:"http_timeout_sec"`
	Log            LogSettings       `toml:"log"`
	Clipboard      ClipboardSettings `toml:"clipboard"`
	Notify         NotifySettings    `toml:"notify"`
}

// LogSettings control the JSONL log file and its rotation.
type LogSettings struct {
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// ClipboardSettings override the platform clipboard commands. Each value is
// a full command line; empty means use the platform default.
type ClipboardSettings struct {
	CopyCommand  string `toml:"copy_command"`
	PasteCommand string `toml:"paste_command"`
}

// NotifySettings control the visual progress indicator and audio cues. An
// empty backend picks the platform default (osascript on darwin, hyprctl
// elsewhere).
type NotifySettings struct {
	Enable         bool          `toml:"enable"`
	Backend        string        `toml:"backend"`
	DesktopAppName string        `toml:"desktop_app_name"`
	ErrorTimeoutMS int           `toml:"error_timeout_ms"`
	Sound          SoundSettings `toml:"sound"`
}

// SoundSettings select audio cues: user-provided files when set, synthesized
// tones otherwise.
type SoundSettings struct {
	Enable       bool   `toml:"enable"`
	CompleteFile string `toml:"complete_file"`
	CancelFile   string `toml:"cancel_file"`
	ErrorFile    string `toml:"error_file"`
}

// CopyArgv parses the copy command override into an argv, nil when unset.
func (c ClipboardSettings) CopyArgv() ([]string, error) {
	return parseArgv(c.CopyCommand)
}

// PasteArgv parses the paste command override into an argv, nil when unset.
func (c ClipboardSettings) PasteArgv() ([]string, error) {
	return parseArgv(c.PasteCommand)
}

// DefaultSettings returns the settings used when no settings.toml exists.
// Socket and Database are left empty here and resolved against the runtime
// and data directories by the daemon.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeoutSec: 30,
		Log: LogSettings{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		Notify: NotifySettings{
			Enable:         true,
			ErrorTimeoutMS: 1200,
			Sound:          SoundSettings{Enable: true},
		},
	}
}

// LoadSettings reads settings.toml, overlaying it onto the defaults. A
// missing file is not an error. Environment variables QUICKTRANSTYPE_SOCKET,
// QUICKTRANSTYPE_DATABASE and QUICKTRANSTYPE_LOG_LEVEL take precedence over
// the file.
func LoadSettings(explicitPath string) (Settings, error) {
	settings := DefaultSettings()

	path, err := ResolveSettingsPath(explicitPath)
	if err != nil {
		return Settings{}, err
	}

	content, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return Settings{}, fmt.Errorf("read settings %q: %w", path, err)
	default:
		if err := toml.Unmarshal(content, &settings); err != nil {
			return Settings{}, fmt.Errorf("parse settings %q: %w", path, err)
		}
	}

	if v := os.Getenv("QUICKTRANSTYPE_SOCKET"); v != "" {
		settings.Socket = v
	}
	if v := os.Getenv("QUICKTRANSTYPE_DATABASE"); v != "" {
		settings.Database = v
	}
	if v := os.Getenv("QUICKTRANSTYPE_LOG_LEVEL"); v != "" {
		settings.Log.Level = v
	}

	if _, err := settings.Clipboard.CopyArgv(); err != nil {
		return Settings{}, fmt.Errorf("clipboard.copy_command: %w", err)
	}
	if _, err := settings.Clipboard.PasteArgv(); err != nil {
		return Settings{}, fmt.Errorf("clipboard.paste_command: %w", err)
	}

	return settings, nil
}

// HTTPTimeout converts the configured timeout to a duration, falling back to
// the default when the value is not positive.
func (s Settings) HTTPTimeout() time.Duration {
	if s.HTTPTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.HTTPTimeoutSec) * time.Second
}
