package hotkey

import (
	"strings"
	"sync"
	"time"

	"github.com/Aeovy/QuickTransType/internal/config"
)

// DefaultPressInterval is the longest gap between presses that still counts
// as part of one consecutive sequence.
const DefaultPressInterval = 500 * time.Millisecond

// Tracker recognizes a consecutive hotkey: N presses of the same key with no
// long pause and no other key in between. Observe reports true on the press
// that completes the sequence, then starts over.
type Tracker struct {
	mu       sync.Mutex
	key      string
	need     int
	interval time.Duration
	seen     int
	last     time.Time
}

// NewTracker builds a tracker for hk. A non-positive interval falls back to
// DefaultPressInterval.
func NewTracker(hk config.Consecutive, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultPressInterval
	}
	t := &Tracker{interval: interval}
	t.Retarget(hk)
	return t
}

// Retarget switches the tracker to a new hotkey and clears progress.
func (t *Tracker) Retarget(hk config.Consecutive) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.key = hk.Key
	t.need = hk.Count
	if t.need < config.MinConsecutiveCount {
		t.need = config.MinConsecutiveCount
	}
	t.seen = 0
}

// Observe feeds one key press. Presses of other keys reset the sequence;
// presses of the target key too far apart start a new sequence.
func (t *Tracker) Observe(key string, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !strings.EqualFold(key, t.key) {
		t.seen = 0
		return false
	}

	if t.seen == 0 || at.Sub(t.last) > t.interval {
		t.seen = 1
	} else {
		t.seen++
	}
	t.last = at

	if t.seen >= t.need {
		t.seen = 0
		return true
	}
	return false
}

// Reset clears any in-flight sequence.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = 0
}
