package build

import (
	"context"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

// Action is what a run would do with a branch.
type Action string

const (
	ActionBuild Action = "build"
	ActionSkip  Action = "skip"
)

// Decision is the planned action for one branch.
type Decision struct {
	Branch forge.BranchRef
	Action Action
	Reason string
}

// Plan discovers branches and evaluates them without publishing, checking
// out or building anything.
func (s *Service) Plan(ctx context.Context) ([]Decision, error) {
	if err := s.checkAccess(ctx); err != nil {
		return nil, err
	}
	branches, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Decision, 0, len(branches))
	for _, b := range branches {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		out = append(out, s.decide(ctx, b))
	}
	return out, nil
}

func (s *Service) decide(ctx context.Context, b forge.BranchRef) Decision {
	d := Decision{Branch: b, Action: ActionBuild}
	switch {
	case s.cfg.ForceRebuild:
		d.Reason = "force_rebuild"
	case !s.cfg.SkipIfLastSuccess:
		d.Reason = "skip_if_last_success disabled"
	default:
		skip, err := s.evaluate(ctx, b)
		switch {
		case err != nil:
			d.Reason = "last status unavailable: " + err.Error()
		case skip:
			d.Action = ActionSkip
			d.Reason = "last status is success"
		default:
			d.Reason = "no successful status"
		}
	}
	return d
}
