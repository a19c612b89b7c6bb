// Package status fetches and publishes commit statuses for build units.
package status

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/branchbuilder/internal/forge"
	"git.home.luguber.info/inful/branchbuilder/internal/metrics"
	"git.home.luguber.info/inful/branchbuilder/internal/retry"
)

// Record is the last status observed for a commit and reporting context.
type Record struct {
	Branch      forge.BranchRef
	State       forge.StatusState
	Context     string
	Description string
	TargetURL   string
	Timestamp   time.Time
}

// Update is a status to publish.
type Update struct {
	State       forge.StatusState
	Context     string
	Description string
	TargetURL   string
}

// PublishResult describes what Publish did. Skipped is set when publishing is
// disabled and no transport call was made.
type PublishResult struct {
	Published bool
	Skipped   bool
	Attempts  int
}

// RemoteError wraps a status fetch or publish failure after retries.
type RemoteError struct {
	Op     string
	Branch forge.BranchRef
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s status for %s@%s: %v", e.Op, e.Branch.Repository.FullName(), e.Branch.ShortCommit(), e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Reporter wraps the forge commit status endpoints.
// It keeps no state between calls: every fetch goes to the forge.
type Reporter struct {
	client   forge.Client
	enabled  bool
	policy   retry.Policy
	recorder metrics.Recorder
}

// NewReporter creates a Reporter. When publish is false, Publish never calls the forge.
func NewReporter(client forge.Client, publish bool, policy retry.Policy) *Reporter {
	return &Reporter{client: client, enabled: publish, policy: policy, recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (r *Reporter) WithRecorder(rec metrics.Recorder) *Reporter {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// FetchLastStatus returns the newest status for the branch head commit in
// statusContext, or nil when none was ever reported.
func (r *Reporter) FetchLastStatus(ctx context.Context, branch forge.BranchRef, statusContext string) (*Record, error) {
	var statuses []forge.Status
	attempts := 0
	err := r.policy.Do(ctx, "fetch_status", func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			r.recorder.IncRetry("fetch_status")
		}
		var err error
		statuses, err = r.client.ListStatuses(ctx, branch.Repository, branch.HeadCommit)
		return err
	})
	if err != nil {
		return nil, &RemoteError{Op: "fetch", Branch: branch, Err: err}
	}
	for _, s := range statuses {
		if s.Context != statusContext {
			continue
		}
		return &Record{
			Branch:      branch,
			State:       s.State,
			Context:     s.Context,
			Description: s.Description,
			TargetURL:   s.TargetURL,
			Timestamp:   s.CreatedAt,
		}, nil
	}
	return nil, nil
}

// Publish posts update for the branch head commit, retrying transient failures.
func (r *Reporter) Publish(ctx context.Context, branch forge.BranchRef, update Update) (PublishResult, error) {
	if !r.enabled {
		r.recorder.IncStatusPublish(string(update.State), metrics.PublishSkipped)
		return PublishResult{Skipped: true}, nil
	}
	if !update.State.Valid() {
		return PublishResult{}, &RemoteError{Op: "publish", Branch: branch, Err: forge.ErrInvalidState.WithContext("state", string(update.State))}
	}

	status := forge.Status{
		State:       update.State,
		Context:     update.Context,
		Description: truncate(update.Description, maxDescription),
		TargetURL:   update.TargetURL,
	}
	res := PublishResult{}
	err := r.policy.Do(ctx, "publish_status", func(ctx context.Context) error {
		res.Attempts++
		if res.Attempts > 1 {
			r.recorder.IncRetry("publish_status")
		}
		return r.client.CreateStatus(ctx, branch.Repository, branch.HeadCommit, status)
	})
	if err != nil {
		r.recorder.IncStatusPublish(string(update.State), metrics.PublishFailed)
		return res, &RemoteError{Op: "publish", Branch: branch, Err: err}
	}
	r.recorder.IncStatusPublish(string(update.State), metrics.PublishOK)
	res.Published = true
	return res, nil
}

// GitHub rejects descriptions longer than 140 characters.
const maxDescription = 140

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
