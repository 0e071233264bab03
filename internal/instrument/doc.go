// Package instrument resolves the working set of instruments for a run.
//
// Two modes:
//   - explicit: a caller-supplied code list, each name defaulting to its code
//   - discovered: the provider's full listing truncated to a fixed-size prefix
//
// Venues are always inferred from the code, never taken from the provider.
package instrument
