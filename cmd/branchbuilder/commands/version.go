package commands

import (
	"fmt"

	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (v *VersionCmd) Run(g *Global) error {
	_, err := fmt.Fprintf(g.Out, "branchbuilder %s\n", version.String())
	return err
}
