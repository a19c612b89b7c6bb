// Package runner executes the external build command for one branch and
// classifies its termination.
package runner

import (
	"fmt"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

// Outcome is the classified result of processing one branch.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeBuildFailure
	OutcomeInternalError
)

// Exit codes with a defined meaning for the build command.
const (
	ExitSuccess      = 0
	ExitBuildFailure = 2
)

// MapExitCode classifies a process exit code. It is total: 0 is success,
// 2 is a build failure and every other value is an internal error.
func MapExitCode(code int) Outcome {
	switch code {
	case ExitSuccess:
		return OutcomeSuccess
	case ExitBuildFailure:
		return OutcomeBuildFailure
	default:
		return OutcomeInternalError
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBuildFailure:
		return "build_failure"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ToState maps an outcome to the commit status state published for it.
func (o Outcome) ToState() forge.StatusState {
	switch o {
	case OutcomeSuccess:
		return forge.StateSuccess
	case OutcomeBuildFailure:
		return forge.StateFailure
	default:
		return forge.StateError
	}
}

// MarshalText encodes the outcome by name for JSON reports and events.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "success":
		*o = OutcomeSuccess
	case "build_failure":
		*o = OutcomeBuildFailure
	case "internal_error":
		*o = OutcomeInternalError
	default:
		return fmt.Errorf("unknown outcome %q", string(b))
	}
	return nil
}
