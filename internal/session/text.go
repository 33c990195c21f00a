package session

import (
	"context"

	"github.com/Aeovy/QuickTransType/internal/output"
)

// TextHandler moves text between the focused application and the clipboard:
// it captures the source text, commits the translated text, and restores the
// pre-capture clipboard when a run aborts.
type TextHandler interface {
	Capture(ctx context.Context, mode output.Mode) (string, error)
	Commit(ctx context.Context, text string) error
	Restore(ctx context.Context) error
}

// placeholderText preserves session flow when no text handler is wired.
type placeholderText struct{}

func (placeholderText) Capture(context.Context, output.Mode) (string, error) {
	return "", ErrPipelineUnavailable
}

func (placeholderText) Commit(context.Context, string) error {
	return nil
}

func (placeholderText) Restore(context.Context) error {
	return nil
}
