package commands

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/branchbuilder/internal/build"
	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/events"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/history"
	"git.home.luguber.info/inful/branchbuilder/internal/metrics"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

// RunCmd implements the 'run' command.
type RunCmd struct {
	Force       bool   `short:"f" help:"Rebuild every branch, ignoring previous statuses (overrides force_rebuild)"`
	NoPublish   bool   `name:"no-publish" help:"Never publish commit statuses (overrides publish_status)"`
	Concurrency int    `short:"j" help:"Number of branches processed in parallel (overrides concurrency)"`
	Report      string `short:"r" help:"Write the run report to this file (overrides report_file)" type:"path"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	r.apply(cfg)

	ctx, stop := signalContext()
	defer stop()

	rep, err := RunBuild(ctx, cfg)
	if err != nil {
		return err
	}
	PrintSummary(g.Out, rep)
	return nil
}

// apply layers the command line flags over the loaded configuration.
func (r *RunCmd) apply(cfg *config.Config) {
	if r.Force {
		cfg.ForceRebuild = true
	}
	if r.NoPublish {
		cfg.PublishStatus = false
	}
	if r.Concurrency > 0 {
		cfg.Concurrency = r.Concurrency
	}
	if r.Report != "" {
		cfg.ReportFile = r.Report
	}
}

// RunBuild wires the forge client, metrics, history and events around a
// build.Service and executes one run. Only configuration and startup
// failures are returned as errors; branch failures live in the report.
func RunBuild(ctx context.Context, cfg *config.Config) (*report.RunReport, error) {
	slog.Info("Starting branchbuilder run",
		slog.String("version", version.Version),
		slog.String("forge", string(cfg.Forge)),
		slog.String("server", cfg.Server),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Bool("publish_status", cfg.PublishStatus),
		slog.Bool("force_rebuild", cfg.ForceRebuild))

	client, err := forge.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := build.NewService(cfg, client)
	if err != nil {
		return nil, err
	}

	var recorder *metrics.PrometheusRecorder
	if cfg.MetricsFile != "" {
		recorder = metrics.NewPrometheusRecorder(prometheus.NewRegistry())
		svc.WithRecorder(recorder)
	}

	if cfg.HistoryDB != "" {
		store, err := history.NewSQLiteStore(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close history database", "error", err)
			}
		}()
		svc.WithHistory(store)
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		// Events are best effort; the run continues without them.
		slog.Warn("Outcome events disabled", "error", err)
		publisher = events.NoopPublisher{}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			slog.Warn("Failed to close event publisher", "error", err)
		}
	}()
	svc.WithEvents(publisher)

	rep, err := svc.Run(ctx)
	if err != nil {
		return nil, err
	}

	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Warn("Failed to write metrics file", "path", cfg.MetricsFile, "error", err)
		}
	}
	return rep, nil
}
