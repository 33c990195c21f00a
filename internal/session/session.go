// Package session coordinates translation lifecycle state, actions, and commit flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Aeovy/QuickTransType/internal/fsm"
	"github.com/Aeovy/QuickTransType/internal/ipc"
	"github.com/Aeovy/QuickTransType/internal/output"
)

type action int

const (
	actionCancel action = iota + 1
)

// ErrBusy indicates a trigger arrived while a translation was already running.
var ErrBusy = errors.New("translation already running")

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	State          fsm.State
	Mode           output.Mode
	SourceText     string
	TranslatedText string
	TargetLanguage string
	Model          string
	Cancelled      bool
	Err            error
	LLMLatency     time.Duration
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Notifier is the session-facing subset of indicator behavior.
type Notifier interface {
	ShowTranslating(context.Context)
	ShowError(context.Context, string)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) ShowTranslating(context.Context)   {}
func (noopNotifier) ShowError(context.Context, string) {}
func (noopNotifier) CueComplete(context.Context)       {}
func (noopNotifier) CueCancel(context.Context)         {}
func (noopNotifier) Hide(context.Context)              {}

// translateOutcome carries the translator goroutine result into the run select.
type translateOutcome struct {
	translation Translation
	err         error
}

// Controller orchestrates translation state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	translate Translator
	text      TextHandler
	notifier  Notifier
	recorder  Recorder

	mu    sync.RWMutex
	state fsm.State

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(
	logger *slog.Logger,
	translator Translator,
	text TextHandler,
	notifier Notifier,
	recorder Recorder,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if translator == nil {
		translator = PlaceholderTranslator{}
	}
	if text == nil {
		text = placeholderText{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if recorder == nil {
		recorder = RecordFunc(func(context.Context, Entry) error { return nil })
	}

	return &Controller{
		logger:    logger,
		translate: translator,
		text:      text,
		notifier:  notifier,
		recorder:  recorder,
		state:     fsm.StateIdle,
		actions:   make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Run executes one translation from trigger to commit/cancel/failure completion.
func (c *Controller) Run(ctx context.Context, mode output.Mode) Result {
	result := Result{Mode: mode, StartedAt: time.Now()}

	if err := c.transition(fsm.EventTrigger); err != nil {
		result.State = c.State()
		result.Err = ErrBusy
		result.FinishedAt = time.Now()
		return result
	}

	// drop a cancel left over from a previous run
	select {
	case <-c.actions:
	default:
	}

	c.notifier.ShowTranslating(ctx)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.notifier.Hide(cleanupCtx)
	}()

	source, err := c.text.Capture(ctx, mode)
	if err != nil {
		c.notifier.ShowError(context.Background(), "Unable to capture text")
		_ = c.text.Restore(context.Background())
		c.toErrorAndReset()
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		c.record(result)
		return result
	}

	if strings.TrimSpace(source) == "" {
		c.notifier.ShowError(context.Background(), "No text captured")
		_ = c.text.Restore(context.Background())
		c.toErrorAndReset()
		result.State = c.State()
		result.Err = ErrNothingToTranslate
		result.FinishedAt = time.Now()
		c.record(result)
		return result
	}
	result.SourceText = source

	if err := c.transition(fsm.EventCaptured); err != nil {
		c.toErrorAndReset()
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		c.record(result)
		return result
	}

	translateCtx, cancelTranslate := context.WithCancel(ctx)
	defer cancelTranslate()

	outcomes := make(chan translateOutcome, 1)
	go func() {
		translation, err := c.translate.Translate(translateCtx, Request{Text: source, Mode: mode})
		outcomes <- translateOutcome{translation: translation, err: err}
	}()

	select {
	case <-ctx.Done():
		cancelTranslate()
		c.notifier.CueCancel(context.Background())
		_ = c.text.Restore(context.Background())
		c.toErrorAndReset()
		result.State = c.State()
		result.Err = ctx.Err()
		result.FinishedAt = time.Now()
		c.record(result)
		return result
	case a := <-c.actions:
		switch a {
		case actionCancel:
			cancelTranslate()
			c.notifier.CueCancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			_ = c.text.Restore(context.Background())
			result.State = c.State()
			result.Cancelled = true
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		default:
			c.toErrorAndReset()
			result.State = c.State()
			result.Err = fmt.Errorf("unknown action %d", a)
			result.FinishedAt = time.Now()
			return result
		}
	case out := <-outcomes:
		result.TargetLanguage = out.translation.TargetLanguage
		result.Model = out.translation.Model
		result.LLMLatency = out.translation.Latency

		if out.err != nil {
			c.notifier.ShowError(context.Background(), "Translation failed")
			_ = c.text.Restore(context.Background())
			c.toErrorAndReset()
			result.State = c.State()
			result.Err = out.err
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		}

		if strings.TrimSpace(out.translation.Text) == "" {
			c.notifier.ShowError(context.Background(), "Empty translation")
			_ = c.text.Restore(context.Background())
			c.toErrorAndReset()
			result.State = c.State()
			result.Err = ErrEmptyTranslation
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		}

		if err := c.transition(fsm.EventTranslated); err != nil {
			c.toErrorAndReset()
			result.State = c.State()
			result.Err = err
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		}

		if err := c.text.Commit(ctx, out.translation.Text); err != nil {
			c.notifier.ShowError(context.Background(), "Output dispatch failed")
			_ = c.text.Restore(context.Background())
			c.toErrorAndReset()
			result.State = c.State()
			result.Err = err
			result.TranslatedText = out.translation.Text
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		}
		c.notifier.CueComplete(context.Background())

		if err := c.transition(fsm.EventCommitted); err != nil {
			result.State = c.State()
			result.Err = err
			result.TranslatedText = out.translation.Text
			result.FinishedAt = time.Now()
			c.record(result)
			return result
		}

		result.State = c.State()
		result.TranslatedText = out.translation.Text
		result.FinishedAt = time.Now()
		c.record(result)
		return result
	}
}

// Handle serves session-scoped IPC commands.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return ipc.Response{OK: true, State: string(c.State()), Message: "status"}
	case "cancel":
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestCancel enqueues a cancel action when state permits it.
func (c *Controller) requestCancel() ipc.Response {
	state := c.State()
	if state == fsm.StateCommitting {
		return ipc.Response{OK: false, State: string(state), Error: "cannot cancel while committing output"}
	}
	if state != fsm.StateCapturing && state != fsm.StateTranslating {
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toErrorAndReset transitions to error and back to idle best-effort.
func (c *Controller) toErrorAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

// record persists the run outcome for history and metrics; failures are logged only.
func (c *Controller) record(result Result) {
	entry := Entry{
		Mode:           result.Mode,
		SourceText:     result.SourceText,
		TranslatedText: result.TranslatedText,
		TargetLanguage: result.TargetLanguage,
		Duration:       result.FinishedAt.Sub(result.StartedAt),
		Cancelled:      result.Cancelled,
		Err:            result.Err,
	}

	recordCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.recorder.Record(recordCtx, entry); err != nil {
		c.logger.Warn("record translation outcome failed", "error", err.Error())
	}
}

// IsPipelineUnavailable reports whether an error represents missing pipeline wiring.
func IsPipelineUnavailable(err error) bool {
	return errors.Is(err, ErrPipelineUnavailable)
}
