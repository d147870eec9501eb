package writer

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize bounds rows queued ahead of the batch. Writes beyond it are dropped.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

func (c WriterConfig) withDefaults() WriterConfig {
	d := DefaultWriterConfig()
	if c.BatchSize < 1 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.BufferSize < 1 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// BatchSender sends a queued batch. *pgxpool.Pool satisfies it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// WriterMetrics holds counters for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Dropped   int64
	Flushes   int64
}

// snapshotRow is a row of the ticker_snapshots table.
type snapshotRow struct {
	InstrumentName  string
	ExchangeTs      int64 // Microseconds
	ReceivedAt      int64 // Microseconds
	UnderlyingPrice float64
	IndexPrice      float64
	MarkPrice       float64
	MarkIV          float64
	BestBidPrice    float64
	BestAskPrice    float64
	LastPrice       float64
	OpenInterest    float64
	Delta           *float64 // NULL for non-options
	Gamma           *float64
	Vega            *float64
}
