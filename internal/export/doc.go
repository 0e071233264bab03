// Package export dumps stored bars to files.
//
// Supported formats are csv, json and parquet. Rows keep the store's
// column names: code, interval, time, open, high, low, close, volume and
// created_at.
package export
