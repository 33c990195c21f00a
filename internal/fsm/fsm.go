package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle        State = "idle"
	StateCapturing   State = "capturing"
	StateTranslating State = "translating"
	StateCommitting  State = "committing"
	StateError       State = "error"
)

const (
	EventTrigger    Event = "trigger"
	EventCaptured   Event = "captured"
	EventTranslated Event = "translated"
	EventCommitted  Event = "committed"
	EventCancel     Event = "cancel"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventTrigger:
			return StateCapturing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCapturing:
		switch event {
		case EventCaptured:
			return StateTranslating, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateTranslating:
		switch event {
		case EventTranslated:
			return StateCommitting, nil
		case EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateCommitting:
		switch event {
		case EventCommitted:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
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
