package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const appDirName = "QuickTransType"

// ResolvePath applies CLI/XDG/platform fallback rules for the config.json location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ResolveSettingsPath locates the daemon settings file next to the config document.
func ResolveSettingsPath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	dir, err := resolveConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.toml"), nil
}

func resolveConfigDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("unable to resolve user config directory")
	}
	return filepath.Join(dir, appDirName), nil
}

// ResolveDataDir returns the per-user data directory for the history database.
func ResolveDataDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for data fallback")
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}
