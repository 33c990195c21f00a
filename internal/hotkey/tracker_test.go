package hotkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aeovy/QuickTransType/internal/config"
)

func TestTrackerFiresOnFinalPress(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 3}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	require.False(t, tracker.Observe("Shift", base.Add(100*time.Millisecond)))
	require.True(t, tracker.Observe("Shift", base.Add(200*time.Millisecond)))

	// The sequence restarts after firing.
	require.False(t, tracker.Observe("Shift", base.Add(300*time.Millisecond)))
	require.False(t, tracker.Observe("Shift", base.Add(400*time.Millisecond)))
	require.True(t, tracker.Observe("Shift", base.Add(500*time.Millisecond)))
}

func TestTrackerKeyMatchIsCaseInsensitive(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Control", Count: 2}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("control", base))
	require.True(t, tracker.Observe("CONTROL", base.Add(50*time.Millisecond)))
}

func TestTrackerLongGapStartsOver(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 3}, 500*time.Millisecond)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	require.False(t, tracker.Observe("Shift", base.Add(200*time.Millisecond)))

	// 600ms since the previous press: this press begins a fresh sequence.
	require.False(t, tracker.Observe("Shift", base.Add(800*time.Millisecond)))
	require.False(t, tracker.Observe("Shift", base.Add(900*time.Millisecond)))
	require.True(t, tracker.Observe("Shift", base.Add(1000*time.Millisecond)))
}

func TestTrackerOtherKeyResetsSequence(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 3}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	require.False(t, tracker.Observe("Shift", base.Add(50*time.Millisecond)))
	require.False(t, tracker.Observe("a", base.Add(100*time.Millisecond)))

	require.False(t, tracker.Observe("Shift", base.Add(150*time.Millisecond)))
	require.False(t, tracker.Observe("Shift", base.Add(200*time.Millisecond)))
	require.True(t, tracker.Observe("Shift", base.Add(250*time.Millisecond)))
}

func TestTrackerRetargetClearsProgress(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 2}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	tracker.Retarget(config.Consecutive{Key: "Control", Count: 2})

	require.False(t, tracker.Observe("Shift", base.Add(50*time.Millisecond)))
	require.False(t, tracker.Observe("Control", base.Add(100*time.Millisecond)))
	require.True(t, tracker.Observe("Control", base.Add(150*time.Millisecond)))
}

func TestTrackerResetClearsProgress(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 2}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	tracker.Reset()
	require.False(t, tracker.Observe("Shift", base.Add(50*time.Millisecond)))
	require.True(t, tracker.Observe("Shift", base.Add(100*time.Millisecond)))
}

func TestTrackerClampsDegenerateCount(t *testing.T) {
	tracker := NewTracker(config.Consecutive{Key: "Shift", Count: 0}, 0)
	base := time.Unix(0, 0)

	require.False(t, tracker.Observe("Shift", base))
	require.True(t, tracker.Observe("Shift", base.Add(50*time.Millisecond)), "count clamps up to the minimum")
}
