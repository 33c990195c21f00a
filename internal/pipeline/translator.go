// Package pipeline binds the configuration store and the LLM client into the
// translator collaborator consumed by session orchestration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
	"github.com/Aeovy/QuickTransType/internal/llm"
	"github.com/Aeovy/QuickTransType/internal/session"
	"github.com/Aeovy/QuickTransType/internal/textproc"
)

// ErrNotConfigured marks configuration gaps that make translation impossible
// until the user fills them in.
var ErrNotConfigured = errors.New("translation is not configured")

// Translator resolves the current configuration for every run, so language
// switches and config saves take effect on the next trigger without restarts.
type Translator struct {
	store  *config.Store
	client *llm.Client
	logger *slog.Logger
}

// NewTranslator constructs the runtime translator over the shared config store.
func NewTranslator(store *config.Store, client *llm.Client, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Translator{store: store, client: client, logger: logger}
}

// Translate runs one source text through the configured model and cleans the
// reply for pasting.
func (t *Translator) Translate(ctx context.Context, req session.Request) (session.Translation, error) {
	if t.store == nil || t.client == nil {
		return session.Translation{}, session.ErrPipelineUnavailable
	}

	cfg, ok := t.store.Current()
	if !ok {
		cfg = t.store.Load(ctx)
	}

	if err := validateLLM(cfg.LLM); err != nil {
		return session.Translation{}, err
	}

	target := strings.TrimSpace(cfg.Language.TargetName())
	if target == "" {
		return session.Translation{}, fmt.Errorf("%w: no target language", ErrNotConfigured)
	}

	start := time.Now()
	reply, err := t.client.Translate(ctx, cfg.LLM, target, req.Text)
	translation := session.Translation{
		TargetLanguage: target,
		Model:          cfg.LLM.Model,
		Latency:        time.Since(start),
	}
	if err != nil {
		return translation, err
	}

	translation.Text = textproc.Clean(reply)
	t.logger.Debug("translation pipeline complete",
		"model", cfg.LLM.Model,
		"target_language", target,
		"mode", string(req.Mode),
		"source_chars", len([]rune(req.Text)),
		"translated_chars", len([]rune(translation.Text)),
		"latency_ms", translation.Latency.Milliseconds(),
	)
	return translation, nil
}

// TestConnection verifies the configured endpoint with a minimal completion.
func (t *Translator) TestConnection(ctx context.Context) error {
	if t.store == nil || t.client == nil {
		return session.ErrPipelineUnavailable
	}

	cfg, ok := t.store.Current()
	if !ok {
		cfg = t.store.Load(ctx)
	}

	if err := validateLLM(cfg.LLM); err != nil {
		return err
	}
	return t.client.TestConnection(ctx, cfg.LLM)
}

// validateLLM rejects configurations that cannot produce a request.
func validateLLM(cfg config.LLMConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: llm base_url is empty", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("%w: llm model is empty", ErrNotConfigured)
	}
	return nil
}
