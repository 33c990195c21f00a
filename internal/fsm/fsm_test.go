package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventTrigger)
	require.NoError(t, err)
	require.Equal(t, StateCapturing, next)

	next, err = Transition(next, EventCaptured)
	require.NoError(t, err)
	require.Equal(t, StateTranslating, next)

	next, err = Transition(next, EventTranslated)
	require.NoError(t, err)
	require.Equal(t, StateCommitting, next)

	next, err = Transition(next, EventCommitted)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesError(t *testing.T) {
	states := []State{StateIdle, StateCapturing, StateTranslating, StateCommitting, StateError}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateError, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle captured invalid", state: StateIdle, event: EventCaptured, want: StateIdle, wantErr: true},
		{name: "idle cancel invalid", state: StateIdle, event: EventCancel, want: StateIdle, wantErr: true},
		{name: "capturing trigger invalid", state: StateCapturing, event: EventTrigger, want: StateCapturing, wantErr: true},
		{name: "capturing committed invalid", state: StateCapturing, event: EventCommitted, want: StateCapturing, wantErr: true},
		{name: "capturing cancel valid", state: StateCapturing, event: EventCancel, want: StateIdle, wantErr: false},
		{name: "translating trigger invalid", state: StateTranslating, event: EventTrigger, want: StateTranslating, wantErr: true},
		{name: "translating cancel valid", state: StateTranslating, event: EventCancel, want: StateIdle, wantErr: false},
		{name: "committing cancel invalid", state: StateCommitting, event: EventCancel, want: StateCommitting, wantErr: true},
		{name: "committing trigger invalid", state: StateCommitting, event: EventTrigger, want: StateCommitting, wantErr: true},
		{name: "error trigger invalid", state: StateError, event: EventTrigger, want: StateError, wantErr: true},
		{name: "error reset valid", state: StateError, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventTrigger)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
