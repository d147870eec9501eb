// Package database provides the TimescaleDB connection pool and schema
// for recorded ticker snapshots.
//
// The store is an output sink: deribitd appends rows and never reads
// them back. Timestamps are microseconds since epoch, so hypertable
// chunks are sized in microseconds too.
package database
