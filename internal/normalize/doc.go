// Package normalize maps provider bar tables onto the canonical bar shape.
//
// Provider headers are renamed to time, open, high, low, close and volume.
// Daily and intraday tables differ only in the header of the time column.
// Times are rendered as "2006-01-02" for daily bars and
// "2006-01-02 15:04:05" for intraday bars. Rows are neither sorted,
// deduplicated nor filtered.
package normalize
