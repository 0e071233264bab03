// Package syncer runs the instrument and bar sync pipeline.
//
// A run resolves its instruments, records their metadata, then walks them
// in order. For each instrument it fetches, normalizes and reconciles every
// requested cadence family inside one transaction, committing once both
// families are done.
//
// Fetch and normalization failures are recorded in the run summary and the
// run moves on. Store failures abort the run. Cancelling the context stops
// the run before the next instrument; instruments already committed keep
// their writes.
//
// The pipeline is sequential. A Syncer is not safe for concurrent Runs.
package syncer
