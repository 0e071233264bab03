// Package model defines shared data types used across barsync.
//
// All types mirror the store schema created by database.EnsureSchema.
//
// Conventions:
//   - Prices and volumes: float64, provider units
//   - Bar times: canonical strings, "2006-01-02" for daily and
//     "2006-01-02 15:04:05" for intraday cadences
//   - Bookkeeping timestamps: UTC, "2006-01-02 15:04:05"
package model
