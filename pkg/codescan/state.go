package codescan

import (
	"errors"
	"fmt"
)

// State is the step a Session is at. Sessions only move forward through
// the states, except that any non-terminal state can move to StateFailed.
type State int

const (
	StateBuildingPayload State = iota
	StateUploading
	StateCreatingScan
	StatePolling
	StateFetchingResults
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateBuildingPayload: "building-payload",
	StateUploading:       "uploading",
	StateCreatingScan:    "creating-scan",
	StatePolling:         "polling",
	StateFetchingResults: "fetching-results",
	StateDone:            "done",
	StateFailed:          "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

var errIllegalTransition = errors.New("illegal state transition")

// transition returns the state after moving from one state to another, or an
// error if the move is not allowed.
func transition(from, to State) (State, error) {
	switch {
	case from.IsTerminal():
		return from, fmt.Errorf("%w: %s is terminal", errIllegalTransition, from)
	case to == StateFailed:
		return to, nil
	case to == from+1:
		return to, nil
	default:
		return from, fmt.Errorf("%w: %s -> %s", errIllegalTransition, from, to)
	}
}
