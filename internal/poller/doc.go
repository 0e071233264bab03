// Package poller implements the daemon-mode sync scheduler.
//
// The Poller:
//   - Runs a job immediately on start, then on every interval tick
//   - Never overlaps runs; a slow run delays the next tick
//   - Bounds each run with an optional timeout
//   - Tracks run counts and the last outcome for health checks
package poller
