package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

const (
	EventStart Event = "start"
	EventStop  Event = "stop"
	EventReset Event = "reset"
)

// Transition returns the next timer state. Reset is accepted from every known state.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle, StateFinished:
		switch event {
		case EventStart:
			return StateRunning, nil
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventStop:
			return StateFinished, nil
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
