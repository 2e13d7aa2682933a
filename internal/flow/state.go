// Package flow sequences short link creation and resolution for one client
// session as an explicit state machine.
package flow

import (
	"errors"
	"fmt"
)

// State is what the client is currently shown.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateConnecting  State = "connecting"
	StateAllocating  State = "allocating"
	StateResolved    State = "resolved"
	StateResultShown State = "result_shown"
	StateErrorShown  State = "error_shown"
)

// Event is an input that moves the machine between states.
type Event string

const (
	EventSubmit       Event = "submit"
	EventNavigateCode Event = "navigate_code"
	EventNavigateHome Event = "navigate_home"
	EventInvalidInput Event = "invalid_input"
	EventLinkFound    Event = "link_found"
	EventLinkMissing  Event = "link_missing"
	EventCodeResolved Event = "code_resolved"
	EventConnected    Event = "connected"
	EventAllocated    Event = "allocated"
	EventFailed       Event = "failed"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// Resting states accept new input. Every other state is in flight.
var restingTransitions = map[Event]State{
	EventSubmit:       StateChecking,
	EventNavigateCode: StateChecking,
	EventNavigateHome: StateIdle,
	EventInvalidInput: StateErrorShown,
}

var transitions = map[State]map[Event]State{
	StateIdle:        restingTransitions,
	StateResolved:    restingTransitions,
	StateResultShown: restingTransitions,
	StateErrorShown:  restingTransitions,
	StateChecking: {
		EventLinkFound:    StateResultShown,
		EventLinkMissing:  StateConnecting,
		EventCodeResolved: StateResolved,
		EventFailed:       StateErrorShown,
	},
	StateConnecting: {
		EventConnected: StateAllocating,
		EventFailed:    StateErrorShown,
	},
	StateAllocating: {
		EventAllocated: StateResultShown,
		EventFailed:    StateErrorShown,
	},
}

// Next returns the state that follows from applying event in state.
func Next(state State, event Event) (State, error) {
	next, ok := transitions[state][event]
	if !ok {
		return state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, state)
	}

	return next, nil
}

// IsBusy reports whether state has an operation in flight. The form is
// locked while busy.
func IsBusy(state State) bool {
	switch state {
	case StateChecking, StateConnecting, StateAllocating:
		return true
	default:
		return false
	}
}
