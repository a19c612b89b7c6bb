package build

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

// State is the lifecycle position of one branch unit.
type State int

const (
	StatePending State = iota
	StateEvaluated
	StateSkipped
	StateCheckingOut
	StateBuilding
	StatePublishing
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateEvaluated:
		return "evaluated"
	case StateSkipped:
		return "skipped"
	case StateCheckingOut:
		return "checking_out"
	case StateBuilding:
		return "building"
	case StatePublishing:
		return "publishing"
	case StateBuilt:
		return "built"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal returns true if no further transition is allowed.
func (s State) IsTerminal() bool {
	return s == StateSkipped || s == StateBuilt
}

// transitions lists the allowed successors of each state. Publishing is
// reachable from every working state so failures can still be reported.
// A checkout without a CI file ends as skipped.
var transitions = map[State][]State{
	StatePending:     {StateEvaluated},
	StateEvaluated:   {StateSkipped, StateCheckingOut, StatePublishing},
	StateCheckingOut: {StateSkipped, StateBuilding, StatePublishing},
	StateBuilding:    {StatePublishing},
	StatePublishing:  {StateBuilt},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// machine tracks the state of a single unit.
type machine struct {
	state State
}

// advance moves to next or returns an internal error for an invalid transition.
func (m *machine) advance(next State) error {
	if !CanTransition(m.state, next) {
		return errors.InternalError("invalid branch state transition").
			WithContext("from", m.state.String()).
			WithContext("to", next.String()).
			Build()
	}
	m.state = next
	return nil
}
