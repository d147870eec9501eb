// Package writer implements the batch writer for recorded ticker snapshots.
//
// The writer uses append-only semantics (never update, only insert). A
// row is keyed by (instrument_name, exchange_ts); duplicates are counted
// as conflicts and skipped. Queued rows are flushed when the batch is
// full, on every flush interval, and once more on Stop.
package writer
