package loop

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateTicking, true},
		{StateTicking, StateSleeping, true},
		{StateTicking, StateTerminal, true},
		{StateSleeping, StateTicking, true},
		{StateSleeping, StateTerminal, true},
		{StateIdle, StateSleeping, false},
		{StateSleeping, StateSleeping, false},
		{StateTerminal, StateTicking, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("%s -> %s: expected %v, got %v", tt.from, tt.to, tt.want, got)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	if err := checkTransition(StateTerminal, StateIdle); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}
