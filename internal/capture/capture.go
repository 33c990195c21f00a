// Package capture implements interactive hotkey recording. One slot records
// at a time; key events become combination candidates, are validated for the
// slot, and are committed through the config store. Committed selected-slot
// hotkeys are checked against system shortcuts asynchronously.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// Outcome classifies what a key event did to the recorder.
type Outcome string

const (
	// OutcomeIgnored means no recording was active.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeSwallowed means a modifier-only event was absorbed mid-recording.
	OutcomeSwallowed Outcome = "swallowed"
	// OutcomeCommitted means the candidate was validated and saved.
	OutcomeCommitted Outcome = "committed"
	// OutcomeRejected means the candidate failed slot validation; the prior
	// hotkey stays in effect and recording ends.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means a valid candidate could not be persisted.
	OutcomeFailed Outcome = "failed"
)

// ErrAlreadyRecording is returned by Focus for the slot that is recording.
var ErrAlreadyRecording = errors.New("slot is already recording")

const conflictCheckTimeout = 3 * time.Second

// KeyEvent is one keyboard event delivered while a slot records.
type KeyEvent struct {
	Key       string
	Modifiers []string
}

// Report carries the result of an asynchronous conflict check. An empty
// Conflicts slice means the hotkey is clean and any prior warning should be
// cleared.
type Report struct {
	Slot      config.Slot
	Hotkey    config.Hotkey
	Conflicts []string
}

// Store is the slice of the config store the recorder needs.
type Store interface {
	Current() (config.Config, bool)
	Save(ctx context.Context, cfg config.Config) error
	CheckConflicts(ctx context.Context, hk config.Hotkey) ([]string, error)
}

// View is a snapshot of the recorder for status surfaces.
type View struct {
	Recording bool
	Slot      config.Slot
	Prior     config.Hotkey
}

// Deps wires the recorder's collaborators. Logger defaults to discard and a
// nil Store degrades to one that fails every call; OnConflicts may be nil.
type Deps struct {
	Logger      *slog.Logger
	Store       Store
	OnConflicts func(Report)
}

// Recorder drives the capture flow for both hotkey slots.
type Recorder struct {
	logger      *slog.Logger
	store       Store
	onConflicts func(Report)

	mu        sync.Mutex
	recording bool
	active    config.Slot
	prior     config.Hotkey

	// conflictSeq orders async conflict checks so a stale result never
	// overwrites the report for a newer capture.
	conflictSeq atomic.Uint64
}

// NewRecorder builds a Recorder from deps.
func NewRecorder(deps Deps) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := deps.Store
	if store == nil {
		store = unavailableStore{}
	}
	return &Recorder{
		logger:      logger,
		store:       store,
		onConflicts: deps.OnConflicts,
	}
}

// Focus begins recording for slot. Focusing the other slot while one records
// aborts the first recording; focusing the slot that is already recording is
// an error.
func (r *Recorder) Focus(slot config.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.store.Current()
	if !ok {
		return errors.New("configuration not loaded")
	}

	if r.recording {
		if r.active == slot {
			return fmt.Errorf("%w: %s", ErrAlreadyRecording, slot)
		}
		r.logger.Debug("capture aborted by focus switch", "slot", r.active)
	}

	r.recording = true
	r.active = slot
	r.prior = cfg.Hotkey.ForSlot(slot)
	r.logger.Debug("capture started", "slot", slot)
	return nil
}

// Blur aborts any active recording. The slot keeps the hotkey it had before
// recording started. Blur with no recording active is a no-op.
func (r *Recorder) Blur() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.logger.Debug("capture aborted", "slot", r.active)
	r.recording = false
}

// HandleKey feeds one keyboard event to the recorder. Outside a recording the
// event is ignored. Modifier-only events are swallowed so the user can build
// up a chord. Any other key ends the recording: the chord is validated for
// the slot and either committed through the store or rejected, leaving the
// prior hotkey in effect.
func (r *Recorder) HandleKey(ctx context.Context, event KeyEvent) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return OutcomeIgnored, nil
	}
	if config.IsModifierKey(event.Key) {
		return OutcomeSwallowed, nil
	}

	slot := r.active
	r.recording = false

	candidate := config.Combination{
		Modifiers: append([]string(nil), event.Modifiers...),
		Key:       event.Key,
	}
	if err := config.ValidateHotkey(candidate, slot); err != nil {
		r.logger.Info("capture rejected", "slot", slot, "error", err)
		return OutcomeRejected, err
	}

	cfg, ok := r.store.Current()
	if !ok {
		return OutcomeFailed, errors.New("configuration not loaded")
	}
	cfg.Hotkey = cfg.Hotkey.WithSlot(slot, candidate)

	if err := r.store.Save(ctx, cfg); err != nil {
		r.logger.Error("capture save failed", "slot", slot, "error", err)
		return OutcomeFailed, err
	}

	r.logger.Info("hotkey captured", "slot", slot, "hotkey", config.FormatHotkey(candidate))
	if slot == config.SlotSelected {
		r.checkConflicts(candidate)
	}
	return OutcomeCommitted, nil
}

// SetCount updates the repeat count of a consecutive hotkey, clamping the
// value into the allowed range, and persists the change. The applied count is
// returned. Slots holding a combination hotkey reject count edits.
func (r *Recorder) SetCount(ctx context.Context, slot config.Slot, count int) (int, error) {
	clamped := count
	if clamped < config.MinConsecutiveCount {
		clamped = config.MinConsecutiveCount
	}
	if clamped > config.MaxConsecutiveCount {
		clamped = config.MaxConsecutiveCount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.store.Current()
	if !ok {
		return 0, errors.New("configuration not loaded")
	}
	cons, ok := cfg.Hotkey.ForSlot(slot).(config.Consecutive)
	if !ok {
		return 0, fmt.Errorf("hotkey.%s is not a consecutive hotkey", slot)
	}
	if cons.Count == clamped {
		return clamped, nil
	}

	cons.Count = clamped
	cfg.Hotkey = cfg.Hotkey.WithSlot(slot, cons)
	if err := r.store.Save(ctx, cfg); err != nil {
		return 0, err
	}
	r.logger.Info("consecutive count updated", "slot", slot, "count", clamped)
	return clamped, nil
}

// View reports the current recording state. Prior is the hotkey the active
// slot falls back to if the recording is aborted.
func (r *Recorder) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return View{}
	}
	return View{Recording: true, Slot: r.active, Prior: r.prior}
}

// checkConflicts runs the system-shortcut check off the capture path. The
// report is delivered even when empty so consumers can clear stale warnings;
// results that lose the race to a newer capture are dropped.
func (r *Recorder) checkConflicts(hk config.Hotkey) {
	seq := r.conflictSeq.Add(1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), conflictCheckTimeout)
		defer cancel()

		names, err := r.store.CheckConflicts(ctx, hk)
		if err != nil {
			r.logger.Warn("conflict check failed", "error", err)
			return
		}
		if r.conflictSeq.Load() != seq {
			return
		}
		if len(names) > 0 {
			r.logger.Warn("hotkey conflicts with system shortcuts",
				"hotkey", config.FormatHotkey(hk), "conflicts", names)
		}
		if r.onConflicts != nil {
			r.onConflicts(Report{Slot: config.SlotSelected, Hotkey: hk, Conflicts: names})
		}
	}()
}

var errStoreUnavailable = errors.New("config store unavailable")

type unavailableStore struct{}

func (unavailableStore) Current() (config.Config, bool) {
	return config.Config{}, false
}

func (unavailableStore) Save(context.Context, config.Config) error {
	return errStoreUnavailable
}

func (unavailableStore) CheckConflicts(context.Context, config.Hotkey) ([]string, error) {
	return nil, errStoreUnavailable
}
