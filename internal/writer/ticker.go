package writer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/deribit-data/internal/metrics"
	"github.com/rickgao/deribit-data/internal/model"
)

const snapshotTable = "ticker_snapshots"

const insertSnapshot = `
	INSERT INTO ticker_snapshots (instrument_name, exchange_ts, received_at, underlying_price, index_price, mark_price, mark_iv, best_bid_price, best_ask_price, last_price, open_interest, delta, gamma, vega)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (instrument_name, exchange_ts) DO NOTHING
`

// ErrWriterStopped is returned by Start after Stop.
var ErrWriterStopped = errors.New("writer stopped")

// TickerWriter batches ticker snapshots into the ticker_snapshots table.
type TickerWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input   chan model.TickerSnapshot
	stopped atomic.Bool

	// Database
	db BatchSender

	// Batching
	batch   []snapshotRow
	batchMu sync.Mutex

	// Lifecycle
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewTickerWriter creates a new TickerWriter.
func NewTickerWriter(cfg WriterConfig, db BatchSender, logger *slog.Logger) *TickerWriter {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &TickerWriter{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan model.TickerSnapshot, cfg.BufferSize),
		batch:  make([]snapshotRow, 0, cfg.BatchSize),
	}
}

// Write queues a snapshot without blocking. It returns false when the
// writer is stopped or its buffer is full.
func (w *TickerWriter) Write(s model.TickerSnapshot) bool {
	if w.stopped.Load() {
		return false
	}
	select {
	case w.input <- s:
		return true
	default:
		metrics.WriterRows.WithLabelValues(snapshotTable, "dropped").Inc()
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		return false
	}
}

// Start begins consuming snapshots and writing them to the database.
func (w *TickerWriter) Start(ctx context.Context) error {
	if w.stopped.Load() {
		return ErrWriterStopped
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("ticker writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer, flushing queued rows with ctx.
func (w *TickerWriter) Stop(ctx context.Context) error {
	if w.stopped.Swap(true) {
		return nil
	}
	w.logger.Info("stopping ticker writer")

	if w.cancel != nil {
		w.cancel()
	}

	// Wait for the loop
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("ticker writer stop timed out")
		return ctx.Err()
	}

	// Rows still queued when the loop exited
	w.drain()
	w.flush(ctx)

	w.logger.Info("ticker writer stopped")
	return nil
}

// Stats returns current counters.
func (w *TickerWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// run accumulates queued rows and flushes on size or interval.
func (w *TickerWriter) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-w.input:
			if w.add(s) {
				w.flush(ctx)
			}
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *TickerWriter) drain() {
	for {
		select {
		case s := <-w.input:
			w.add(s)
		default:
			return
		}
	}
}

// add appends a row and reports whether the batch is full.
func (w *TickerWriter) add(s model.TickerSnapshot) bool {
	row := transform(s)

	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, row)
	return len(w.batch) >= w.cfg.BatchSize
}

func transform(s model.TickerSnapshot) snapshotRow {
	return snapshotRow{
		InstrumentName:  s.InstrumentName,
		ExchangeTs:      s.ExchangeTS,
		ReceivedAt:      s.ReceivedAt,
		UnderlyingPrice: s.UnderlyingPrice,
		IndexPrice:      s.IndexPrice,
		MarkPrice:       s.MarkPrice,
		MarkIV:          s.MarkIV,
		BestBidPrice:    s.BestBidPrice,
		BestAskPrice:    s.BestAskPrice,
		LastPrice:       s.LastPrice,
		OpenInterest:    s.OpenInterest,
		Delta:           s.Delta,
		Gamma:           s.Gamma,
		Vega:            s.Vega,
	}
}

// flush writes the current batch to the database.
func (w *TickerWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]snapshotRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()
	conflicts, err := w.batchInsert(ctx, batch)
	metrics.WriterFlushDuration.WithLabelValues(snapshotTable).Observe(time.Since(start).Seconds())

	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		metrics.WriterRows.WithLabelValues(snapshotTable, "error").Add(float64(len(batch)))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	inserted := len(batch) - conflicts
	metrics.WriterRows.WithLabelValues(snapshotTable, "inserted").Add(float64(inserted))
	metrics.WriterRows.WithLabelValues(snapshotTable, "conflict").Add(float64(conflicts))

	w.batchMu.Lock()
	w.metrics.Inserts += int64(inserted)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed ticker snapshots",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *TickerWriter) batchInsert(ctx context.Context, rows []snapshotRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSnapshot,
			r.InstrumentName, r.ExchangeTs, r.ReceivedAt,
			r.UnderlyingPrice, r.IndexPrice, r.MarkPrice, r.MarkIV,
			r.BestBidPrice, r.BestAskPrice, r.LastPrice, r.OpenInterest,
			r.Delta, r.Gamma, r.Vega,
		)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
