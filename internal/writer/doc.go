// Package writer persists instruments and bars.
//
// Writers:
//   - Instrument writer: insert-or-update by code, created_at set only on insert
//   - Bar writer: range overwrite per (code, cadence) batch
//
// Writers never open transactions on their own except in the *Tx helpers.
// The caller owns the transaction and decides when to commit, so an
// instrument's daily and intraday batches land together or not at all.
//
// The bar table has no unique constraint. The bar writer keeps the logical
// key (code, cadence, time) unique by deleting the batch's time span before
// inserting it. A batch that is missing an interior bar the store already
// holds deletes that bar without replacement.
package writer
