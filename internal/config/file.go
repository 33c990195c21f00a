package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// EncodeDocument renders cfg as the canonical on-disk JSON document.
func EncodeDocument(cfg Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteDocument validates cfg and persists it to path. The document is
// written to a temporary file in the target directory and renamed into
// place, so a crash mid-write leaves the previous document intact. The file
// is kept private to the owner because it carries the API key.
func WriteDocument(path string, cfg Config) error {
	if _, err := Validate(cfg); err != nil {
		return err
	}

	data, err := EncodeDocument(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace config %q: %w", path, err)
	}
	return nil
}
