// Package commands implements the branchbuilder CLI subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/observability"
)

// Global carries state shared by all subcommands.
type Global struct {
	Out    io.Writer
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"branchbuilder.yaml" type:"path"`
	EnvFile  []string         `name:"env-file" help:"Environment file(s) loaded before the configuration (default .env, .env.local)" type:"path"`
	Verbose  bool             `short:"v" help:"Enable verbose logging"`
	LogLevel string           `name:"log-level" help:"Override logging.level (debug|info|warn|error)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"withargs" help:"Build all selected branches once and exit"`
	List     ListCmd     `cmd:"" help:"Show which branches a run would build or skip, without side effects"`
	Validate ValidateCmd `cmd:"" help:"Load and validate the configuration"`
	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	History  HistoryCmd  `cmd:"" help:"Show recorded branch outcomes from the history database"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; loads env files and sets up logging once.
func (c *CLI) AfterApply(g *Global) error {
	if _, err := config.LoadEnvFiles(c.EnvFile...); err != nil {
		return errors.ConfigError("failed to load environment file").WithCause(err).Build()
	}
	c.setLogger(g, config.LoggingConfig{Level: config.NormalizeLogLevel(c.LogLevel)})
	return nil
}

// setLogger installs the default logger. Flags take precedence over lc.
func (c *CLI) setLogger(g *Global, lc config.LoggingConfig) {
	level := lc.Level.SlogLevel()
	if c.LogLevel != "" {
		level = config.NormalizeLogLevel(c.LogLevel).SlogLevel()
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = observability.NewLogger(os.Stderr, level, lc.Format)
	slog.SetDefault(g.Logger)
}

// loadConfig loads the configuration file and re-applies its logging settings.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	c.setLogger(g, cfg.Logging)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
