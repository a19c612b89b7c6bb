package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/branchbuilder/cmd/branchbuilder/commands"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{Out: os.Stdout}
	parser := kong.Parse(&cli,
		kong.Name("branchbuilder"),
		kong.Description("Build every branch of the selected forge repositories and report commit statuses."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := parser.Run(global, &cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
