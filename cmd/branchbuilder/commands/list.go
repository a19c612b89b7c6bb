package commands

import (
	"fmt"

	"git.home.luguber.info/inful/branchbuilder/internal/build"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Force bool `short:"f" help:"Evaluate as if force_rebuild were set"`
}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if l.Force {
		cfg.ForceRebuild = true
	}
	client, err := forge.NewClient(cfg)
	if err != nil {
		return err
	}
	svc, err := build.NewService(cfg, client)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	decisions, err := svc.Plan(ctx)
	if err != nil {
		return err
	}

	width := 0
	for _, d := range decisions {
		width = max(width, len(d.Branch.Key()))
	}
	for _, d := range decisions {
		style := successStyle
		if d.Action == build.ActionSkip {
			style = mutedStyle
		}
		_, _ = fmt.Fprintf(g.Out, "%-*s  %-12s  %s  %s\n",
			width, d.Branch.Key(),
			d.Branch.ShortCommit(),
			style.Render(fmt.Sprintf("%-5s", d.Action)),
			mutedStyle.Render(d.Reason))
	}
	_, _ = fmt.Fprintf(g.Out, "%d branches\n", len(decisions))
	return nil
}
