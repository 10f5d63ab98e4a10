package loop

import (
	"errors"
	"fmt"
)

// State is the phase of the monitoring loop.
type State int32

const (
	StateIdle State = iota
	StateTicking
	StateSleeping
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTicking:
		return "ticking"
	case StateSleeping:
		return "sleeping"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Mode selects between running until cancelled and a single tick.
type Mode int

const (
	Continuous Mode = iota
	SingleShot
)

func (m Mode) String() string {
	if m == SingleShot {
		return "single-shot"
	}
	return "continuous"
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	StateIdle:     {StateTicking, StateTerminal},
	StateTicking:  {StateSleeping, StateTerminal},
	StateSleeping: {StateTicking, StateTerminal},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
