package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/history"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Repository string `short:"r" help:"Only show outcomes of this repository (owner/name)"`
	Limit      int    `short:"n" help:"Number of outcomes to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return errors.ValidationError("history_db is not configured").Build()
	}
	store, err := history.NewSQLiteStore(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	outcomes, err := store.Recent(context.Background(), h.Repository, h.Limit)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		label := report.Label(o.Outcome)
		style := errorStyle
		switch {
		case o.Skipped:
			label, style = "skipped", mutedStyle
		case o.Outcome == runner.OutcomeSuccess:
			style = successStyle
		case o.Outcome == runner.OutcomeBuildFailure:
			style = failureStyle
		}
		commit := o.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		_, _ = fmt.Fprintf(g.Out, "%s  %s@%s  %s  %s\n",
			mutedStyle.Render(o.StartedAt.Local().Format(time.DateTime)),
			o.Repository, o.Branch, commit,
			style.Render(label))
	}
	return nil
}
