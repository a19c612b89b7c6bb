// Package metrics records run metrics behind a Recorder interface.
//
// Components hold a Recorder and default to NoopRecorder, so metrics stay
// optional without nil checks. When metrics_file is configured the CLI injects
// a PrometheusRecorder and writes its registry in the Prometheus text
// exposition format at the end of the run, ready for the node_exporter
// textfile collector.
package metrics
