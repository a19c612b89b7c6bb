package metrics

import "time"

// PublishResult labels the result of a status publish attempt.
type PublishResult string

const (
	PublishOK      PublishResult = "published"
	PublishSkipped PublishResult = "skipped"
	PublishFailed  PublishResult = "failed"
)

// Recorder defines metrics hooks for the orchestrator.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBranchDuration(d time.Duration)
	IncBranchOutcome(outcome string, skipped bool)
	ObserveCheckoutDuration(d time.Duration, success bool)
	IncStatusPublish(state string, result PublishResult)
	IncRetry(operation string)
	SetConcurrency(n int)
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)   {}
func (NoopRecorder) ObserveBranchDuration(time.Duration)          {}
func (NoopRecorder) IncBranchOutcome(string, bool)                {}
func (NoopRecorder) ObserveCheckoutDuration(time.Duration, bool)  {}
func (NoopRecorder) IncStatusPublish(string, PublishResult)       {}
func (NoopRecorder) IncRetry(string)                              {}
func (NoopRecorder) SetConcurrency(int)                           {}
func (NoopRecorder) ObserveRunDuration(time.Duration)             {}

var _ Recorder = NoopRecorder{}
