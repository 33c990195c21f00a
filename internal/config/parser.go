package config

import (
	"errors"
	"strings"
)

// Parse reads a configuration document and overlays it onto base. The document
// is JSON with comment and trailing-comma tolerance; fields left out keep the
// base value, so partial documents are valid.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("configuration document must be a JSON object")
	}

	return parseDocument(content, base)
}
