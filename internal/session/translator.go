package session

import (
	"context"
	"errors"
	"time"

	"github.com/Aeovy/QuickTransType/internal/output"
)

var (
	// ErrPipelineUnavailable indicates runtime capture/translation wiring is missing.
	ErrPipelineUnavailable = errors.New("text capture and translation pipeline not implemented")
	// ErrNothingToTranslate indicates capture completed but produced no usable text.
	ErrNothingToTranslate = errors.New("no text captured; check the selection or focused input")
	// ErrEmptyTranslation indicates the model replied but the reply carried no text.
	ErrEmptyTranslation = errors.New("translation returned no text")
)

// Request carries one source text to the translation backend.
type Request struct {
	Text string
	Mode output.Mode
}

// Translation is the translator output consumed by the session controller.
type Translation struct {
	Text           string
	TargetLanguage string
	Model          string
	Latency        time.Duration
}

// Translator abstracts the LLM translation operation needed by session orchestration.
type Translator interface {
	Translate(context.Context, Request) (Translation, error)
}

// PlaceholderTranslator is a no-op placeholder used in tests/fallback wiring.
type PlaceholderTranslator struct{}

func (PlaceholderTranslator) Translate(context.Context, Request) (Translation, error) {
	return Translation{}, ErrPipelineUnavailable
}
