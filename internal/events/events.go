// Package events publishes branch outcomes to NATS for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/branchbuilder/internal/config"
	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/branchbuilder/internal/logfields"
	"git.home.luguber.info/inful/branchbuilder/internal/report"
	"git.home.luguber.info/inful/branchbuilder/internal/runner"
	"git.home.luguber.info/inful/branchbuilder/internal/version"
)

// OutcomeEvent is the JSON message published for every finished branch.
type OutcomeEvent struct {
	RunID      string         `json:"run_id"`
	Repository string         `json:"repository"`
	Branch     string         `json:"branch"`
	Kind       string         `json:"kind,omitempty"`
	Commit     string         `json:"commit"`
	Outcome    runner.Outcome `json:"outcome"`
	Skipped    bool           `json:"skipped"`
	Published  bool           `json:"published"`
	ExitCode   int            `json:"exit_code"`
	DurationMS int64          `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
	Version    string         `json:"branchbuilder_version"`
}

// NewOutcomeEvent converts a report entry.
func NewOutcomeEvent(runID string, e report.Entry) OutcomeEvent {
	return OutcomeEvent{
		RunID:      runID,
		Repository: e.Branch.Repository.FullName(),
		Branch:     e.Branch.Name,
		Kind:       string(e.Branch.Kind),
		Commit:     e.Branch.HeadCommit,
		Outcome:    e.Outcome,
		Skipped:    e.Skipped,
		Published:  e.Published,
		ExitCode:   e.ExitCode,
		DurationMS: e.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
		Version:    version.Version,
	}
}

// Publisher sends outcome events.
type Publisher interface {
	Publish(ctx context.Context, ev OutcomeEvent) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, OutcomeEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// conn is the subset of *nats.Conn used by NATSPublisher.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

const connectTimeout = 5 * time.Second

// NewNATSPublisher connects to the configured server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("branchbuilder"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, errors.EventsError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", cfg.NATSURL).
			Build()
	}
	slog.Info("NATS publisher connected", slog.String("url", cfg.NATSURL), slog.String("subject", cfg.Subject))
	return newNATSPublisher(nc, cfg.Subject), nil
}

func newNATSPublisher(c conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject}
}

// Publish sends ev and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, ev OutcomeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.EventsError("failed to marshal outcome event").WithCause(err).Build()
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return errors.EventsError("failed to publish outcome event").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.EventsError("failed to flush outcome event").
			WithCause(err).
			WithContext("subject", p.subject).
			Build()
	}
	slog.Debug("Published outcome event",
		logfields.Repository(ev.Repository),
		logfields.Branch(ev.Branch),
		logfields.Outcome(ev.Outcome.String()))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// New returns a NATS publisher when events are enabled and a NoopPublisher otherwise.
func New(cfg config.EventsConfig) (Publisher, error) {
	if !cfg.Enabled() {
		return NoopPublisher{}, nil
	}
	p, err := NewNATSPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}
