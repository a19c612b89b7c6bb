package commands

import "fmt"

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "%s: configuration is valid (forge %s, %s)\n", root.Config, cfg.Forge, cfg.Server)
	return nil
}
