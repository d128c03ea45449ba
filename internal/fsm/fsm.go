package fsm

import "fmt"

type State string

type Event string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateError         State = "error"
)

const (
	EventInitialize Event = "initialize"
	EventReady      Event = "ready"
	EventDisconnect Event = "disconnect"
	EventFail       Event = "fail"
	EventReset      Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateUninitialized:
		switch event {
		case EventInitialize:
			return StateInitializing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateInitializing:
		switch event {
		case EventReady:
			return StateReady, nil
		case EventDisconnect:
			return StateUninitialized, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReady:
		switch event {
		case EventDisconnect:
			return StateUninitialized, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateUninitialized, nil
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
