// Package textproc normalizes model output before it reaches the clipboard.
package textproc

import "strings"

// Clean trims a model response and unwraps it when the model packaged the
// whole translation in a single fenced code block.
func Clean(s string) string {
	trimmed := strings.TrimSpace(s)
	if body, ok := stripWrappingFence(trimmed); ok {
		return strings.TrimSpace(body)
	}
	return trimmed
}

// stripWrappingFence unwraps ```lang\n ... \n``` when the fence spans the
// entire text. Fences that only cover part of the response are left alone;
// the model meant those literally.
func stripWrappingFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	rest := s[3:]
	newline := strings.IndexByte(rest, '\n')
	if newline < 0 {
		return "", false
	}

	tag := strings.TrimSpace(rest[:newline])
	if strings.ContainsAny(tag, " \t`") {
		return "", false
	}

	body := rest[newline+1:]
	closing := strings.LastIndex(body, "```")
	if closing < 0 {
		return "", false
	}
	if strings.TrimSpace(body[closing+3:]) != "" {
		return "", false
	}
	return body[:closing], true
}

// Snippet shortens text for log lines and previews, cutting on rune
// boundaries so multi-byte scripts survive.
func Snippet(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
