package build

import (
	"context"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/events"
	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/git"
	"git.home.luguber.info/inful/branchbuilder/internal/history"
	"git.home.luguber.info/inful/branchbuilder/internal/metrics"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/repository"
	"git.home.luguber.info/inful/branchbuilder/internal/retry"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
	"git.home.luguber.info/inful/branchbuilder/internal/status"
	"git.home.luguber.info/inful/branchbuilder/internal/workspace"
)

// Checkout materializes a branch at its head commit.
type Checkout interface {
	Materialize(ctx context.Context, branch forge.BranchRef, dir string) (string, error)
}

// BuildRunner runs the external build command.
type BuildRunner interface {
	Run(ctx context.Context, inv runner.Invocation) runner.Result
}

// finalPublishTimeout bounds the last status publish of a unit, which runs
// detached from run cancellation.
const finalPublishTimeout = 30 * time.Second

// buildReportName is the file handed to the build command as ${REPORT_FILE}.
const buildReportName = "build-report.json"

// buildLogName receives the full build output inside the build directory.
const buildLogName = "build.log"

// Service is the branch build orchestrator.
type Service struct {
	cfg       *config.Config
	client    forge.Client
	filter    *repository.Filter
	reporter  *status.Reporter
	checkout  Checkout
	runner    BuildRunner
	workspace *workspace.Manager
	locker    *workspace.Locker
	policy    retry.Policy
	recorder  metrics.Recorder
	history   history.Store
	events    events.Publisher
	writer    *report.Writer
	newRunID  func() string
}

// NewService creates a Service for cfg talking to client. The git checkout
// client and build runner are derived from cfg and can be replaced with the
// With* methods.
func NewService(cfg *config.Config, client forge.Client) (*Service, error) {
	gc, err := git.NewClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	policy := retry.FromConfig(cfg.Retry)
	return &Service{
		cfg:       cfg,
		client:    client,
		filter:    repository.NewFilter(cfg.WhitelistRepos, cfg.BlacklistRepos),
		reporter:  status.NewReporter(client, cfg.PublishStatus, policy),
		checkout:  gc,
		runner:    runner.New(cfg.Build.OutputTail),
		workspace: workspace.NewManager(cfg.OutputDir, cfg.Build.KeepBuilds),
		locker:    workspace.NewLocker(),
		policy:    policy,
		recorder:  metrics.NoopRecorder{},
		events:    events.NoopPublisher{},
		writer:    report.NewWriter(""),
		newRunID:  func() string { return uuid.NewString() },
	}, nil
}

// WithCheckout replaces the checkout implementation (for testing).
func (s *Service) WithCheckout(c Checkout) *Service {
	if c != nil {
		s.checkout = c
	}
	return s
}

// WithRunner replaces the build runner (for testing).
func (s *Service) WithRunner(r BuildRunner) *Service {
	if r != nil {
		s.runner = r
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
		s.reporter.WithRecorder(r)
	}
	return s
}

// WithRetryPolicy replaces the retry policy used for forge calls.
func (s *Service) WithRetryPolicy(p retry.Policy) *Service {
	s.policy = p
	s.reporter = status.NewReporter(s.client, s.cfg.PublishStatus, p).WithRecorder(s.recorder)
	return s
}

// WithHistory enables the run history store.
func (s *Service) WithHistory(h history.Store) *Service {
	s.history = h
	return s
}

// WithEvents sets the outcome event publisher.
func (s *Service) WithEvents(p events.Publisher) *Service {
	if p != nil {
		s.events = p
	}
	return s
}

// WithReportWriter replaces the report writer.
func (s *Service) WithReportWriter(w *report.Writer) *Service {
	if w != nil {
		s.writer = w
	}
	return s
}

// WithRunIDFunc overrides run ID generation (for testing).
func (s *Service) WithRunIDFunc(fn func() string) *Service {
	if fn != nil {
		s.newRunID = fn
	}
	return s
}
