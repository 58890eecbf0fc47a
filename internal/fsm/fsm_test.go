package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventActivate)
	require.NoError(t, err)
	require.Equal(t, StateRecording, next)

	next, err = Transition(next, EventDeactivate)
	require.NoError(t, err)
	require.Equal(t, StateProcessing, next)

	next, err = Transition(next, EventTranscribed)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionAbortReturnsToIdle(t *testing.T) {
	for _, state := range []State{StateRecording, StateProcessing} {
		next, err := Transition(state, EventAbort)
		require.NoError(t, err)
		require.Equal(t, StateIdle, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle deactivate invalid", state: StateIdle, event: EventDeactivate},
		{name: "idle transcribed invalid", state: StateIdle, event: EventTranscribed},
		{name: "idle abort invalid", state: StateIdle, event: EventAbort},
		{name: "recording activate invalid", state: StateRecording, event: EventActivate},
		{name: "recording transcribed invalid", state: StateRecording, event: EventTranscribed},
		{name: "processing activate invalid", state: StateProcessing, event: EventActivate},
		{name: "processing deactivate invalid", state: StateProcessing, event: EventDeactivate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, tt.event)
			require.Error(t, err)
			require.Equal(t, tt.state, next)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	_, err := Transition(State("bogus"), EventActivate)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
}
