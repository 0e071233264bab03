// Package metrics provides Prometheus metrics for sync runs.
//
// Key metrics:
//   - Runs by status (ok, error, cancelled)
//   - Rows written by cadence family
//   - Per-instrument item errors by family
//   - Run duration and last successful run time
//
// Metrics live on a private registry. One-shot runs write them to a
// node_exporter textfile; the daemon serves them over HTTP.
package metrics
