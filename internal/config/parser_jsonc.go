package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// parseDocument decodes a JSONC document over a copy of base. Unknown fields
// are rejected so typos surface as errors instead of silently doing nothing.
func parseDocument(content string, base Config) (Config, []Warning, error) {
	normalized := normalizeJSONC(content)

	cfg := base.Clone()
	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

// normalizeJSONC strips comments and trailing commas while preserving byte
// offsets of the remaining JSON, so decode errors still point at the right
// line and column of the original document.
func normalizeJSONC(content string) string {
	withoutComments := stripJSONCComments(content)
	return stripJSONCTrailingCommas(withoutComments)
}

func stripJSONCComments(content string) string {
	var out bytes.Buffer
	out.Grow(len(content))

	inString := false
	escaped := false
	i := 0
	for i < len(content) {
		c := content[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			i++
			continue
		}

		switch {
		case c == '"':
			inString = true
			out.WriteByte(c)
			i++
		case c == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				out.WriteByte(' ')
				i++
			}
		case c == '/' && i+1 < len(content) && content[i+1] == '*':
			for i < len(content) {
				if content[i] == '*' && i+1 < len(content) && content[i+1] == '/' {
					out.WriteString("  ")
					i += 2
					break
				}
				if content[i] == '\n' {
					out.WriteByte('\n')
				} else {
					out.WriteByte(' ')
				}
				i++
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func stripJSONCTrailingCommas(content string) string {
	var out bytes.Buffer
	out.Grow(len(content))

	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]

		if inString {
			out.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}

		if c == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				out.WriteByte(' ')
				continue
			}
		}

		out.WriteByte(c)
	}
	return out.String()
}

func isJSONWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err == nil {
		return fmt.Errorf("configuration document contains trailing data after the JSON object")
	}
	return nil
}

// wrapJSONDecodeError attaches line and column information to decode errors
// where the standard library only reports a byte offset.
func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if ok := asJSONError(err, &syntaxErr); ok {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("parse config at line %d, column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if ok := asJSONError(err, &typeErr); ok {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("parse config at line %d, column %d: field %q expects %s: %w",
			line, col, typeErr.Field, typeErr.Type, err)
	}

	return fmt.Errorf("parse config: %w", err)
}

func asJSONError[T error](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func offsetToLineCol(content string, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
