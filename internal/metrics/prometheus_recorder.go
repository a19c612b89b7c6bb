package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/branchbuilder/internal/foundation/errors"
)

const namespace = "branchbuilder"

// PrometheusRecorder implements Recorder using Prometheus collectors.
type PrometheusRecorder struct {
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	branchDuration  prom.Histogram
	branchOutcomes  *prom.CounterVec
	checkout        *prom.HistogramVec
	statusPublishes *prom.CounterVec
	retries         *prom.CounterVec
	concurrency     prom.Gauge
	runDuration     prom.Gauge
	lastRun         prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of branch state machine stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		branchDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "branch_duration_seconds",
			Help:      "Wall-clock time spent per branch",
			Buckets:   prom.ExponentialBuckets(1, 2, 14),
		}),
		branchOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "branch_outcomes_total",
			Help:      "Branch outcomes by result",
		}, []string{"outcome", "skipped"}),
		checkout: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "checkout_duration_seconds",
			Help:      "Duration of clone or fetch and reset",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		statusPublishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "status_publish_total",
			Help:      "Commit status publish attempts by state and result",
		}, []string{"state", "result"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries of transient forge or git failures",
		}, []string{"operation"}),
		concurrency: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "concurrency",
			Help:      "Configured worker count for the last run",
		}),
		runDuration: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last run finished",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.branchDuration, pr.branchOutcomes, pr.checkout,
		pr.statusPublishes, pr.retries, pr.concurrency, pr.runDuration, pr.lastRun)
	return pr
}

// Registry returns the registry holding the collectors.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBranchDuration(d time.Duration) {
	p.branchDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBranchOutcome(outcome string, skipped bool) {
	p.branchOutcomes.WithLabelValues(outcome, strconv.FormatBool(skipped)).Inc()
}

func (p *PrometheusRecorder) ObserveCheckoutDuration(d time.Duration, success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.checkout.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStatusPublish(state string, result PublishResult) {
	p.statusPublishes.WithLabelValues(state, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRetry(operation string) {
	p.retries.WithLabelValues(operation).Inc()
}

func (p *PrometheusRecorder) SetConcurrency(n int) {
	p.concurrency.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	p.runDuration.Set(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

// WriteTextfile writes all collected metrics to path in the text exposition format.
// The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return errors.FileSystemError("failed to write metrics textfile").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return nil
}

var _ Recorder = (*PrometheusRecorder)(nil)
