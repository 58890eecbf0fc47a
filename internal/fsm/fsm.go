// Package fsm defines the dictation pipeline state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
)

const (
	// EventActivate is the hotkey press edge.
	EventActivate Event = "activate"
	// EventDeactivate is the hotkey release edge.
	EventDeactivate Event = "deactivate"
	// EventTranscribed fires when the transcription worker completes.
	EventTranscribed Event = "transcribed"
	// EventAbort discards the active cycle and returns to idle.
	EventAbort Event = "abort"
)

// Transition returns the next state for an event, or an error when the edge
// is invalid from the current state. Callers that treat stray hotkey edges as
// no-ops check the error and keep the prior state.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventActivate:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventDeactivate:
			return StateProcessing, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventTranscribed, EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
