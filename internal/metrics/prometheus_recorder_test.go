package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("checkout", 150*time.Millisecond)
	pr.ObserveBranchDuration(2 * time.Second)
	pr.IncBranchOutcome("success", true)
	pr.IncBranchOutcome("build_failure", false)
	pr.IncBranchOutcome("build_failure", false)
	pr.ObserveCheckoutDuration(time.Second, false)
	pr.IncStatusPublish("pending", PublishSkipped)
	pr.IncRetry("publish_status")
	pr.SetConcurrency(4)
	pr.ObserveRunDuration(3 * time.Second)

	if got := testutil.ToFloat64(pr.branchOutcomes.WithLabelValues("build_failure", "false")); got != 2 {
		t.Fatalf("expected 2 build failures, got %v", got)
	}
	if got := testutil.ToFloat64(pr.concurrency); got != 4 {
		t.Fatalf("expected concurrency 4, got %v", got)
	}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected metrics, got none")
	}
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncStatusPublish("success", PublishOK)

	path := filepath.Join(t.TempDir(), "branchbuilder.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `branchbuilder_status_publish_total{result="published",state="success"} 1`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}

	if err := pr.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom")); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncBranchOutcome("success", false)
	r.ObserveRunDuration(time.Second)
}
