package session

import (
	"context"
	"time"

	"github.com/Aeovy/QuickTransType/internal/output"
)

// Entry describes one finished translation run for history and metrics
// recording. Err is nil and Cancelled false on success.
type Entry struct {
	Mode           output.Mode
	SourceText     string
	TranslatedText string
	TargetLanguage string
	Duration       time.Duration
	Cancelled      bool
	Err            error
}

// Recorder persists run outcomes after a session completes. Recorder failures
// never fail the run; the controller logs and moves on.
type Recorder interface {
	Record(context.Context, Entry) error
}

// RecordFunc adapts a function to the Recorder interface.
type RecordFunc func(context.Context, Entry) error

func (f RecordFunc) Record(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}
