package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/deribit-data/internal/model"
	"github.com/rickgao/deribit-data/internal/subscription"
)

// Source fetches market data. *api.Client satisfies it.
type Source interface {
	GetTicker(ctx context.Context, instrument string) (model.Ticker, error)
	GetIndexPrice(ctx context.Context, index string) (model.IndexPrice, error)
}

// TickerHandler receives every successfully fetched ticker.
type TickerHandler interface {
	HandleTicker(t model.Ticker) error
}

// TickerHandlerFunc is a function adapter for TickerHandler.
type TickerHandlerFunc func(model.Ticker) error

func (f TickerHandlerFunc) HandleTicker(t model.Ticker) error {
	return f(t)
}

// TickerFeed is one instrument polled at Interval.
type TickerFeed struct {
	Instrument string
	Interval   time.Duration
}

// IndexFeed is one index polled at Interval.
type IndexFeed struct {
	IndexName string
	Interval  time.Duration
}

// Config lists the feeds a recorder observes.
type Config struct {
	Tickers []TickerFeed
	Indices []IndexFeed
}

// Stats holds recorder counters.
type Stats struct {
	Tickers       int64
	Indices       int64
	FetchErrors   int64
	HandlerErrors int64
}

// Recorder observes configured feeds through shared subscription caches,
// logs every update and hands tickers to a handler.
type Recorder struct {
	cfg     Config
	source  Source
	tickers *subscription.Cache[model.Ticker]
	indices *subscription.Cache[model.IndexPrice]
	handler TickerHandler
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	tickerCount  atomic.Int64
	indexCount   atomic.Int64
	fetchErrors  atomic.Int64
	handlerError atomic.Int64
}

// New creates a Recorder. handler may be nil, in which case tickers are
// only logged.
func New(
	cfg Config,
	source Source,
	tickers *subscription.Cache[model.Ticker],
	indices *subscription.Cache[model.IndexPrice],
	handler TickerHandler,
	logger *slog.Logger,
) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:     cfg,
		source:  source,
		tickers: tickers,
		indices: indices,
		handler: handler,
		logger:  logger,
	}
}

// TickerKey is the cache key of a periodic ticker feed.
func TickerKey(instrument string, interval time.Duration) string {
	return subscription.Key("GetTicker", instrument, interval)
}

// IndexKey is the cache key of a periodic index feed.
func IndexKey(index string, interval time.Duration) string {
	return subscription.Key("GetIndexPrice", index, interval)
}

// Start subscribes every configured feed. Feeds end when ctx ends or on Stop.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	for _, tf := range r.cfg.Tickers {
		instrument := tf.Instrument
		feed, err := r.tickers.Observe(ctx, TickerKey(instrument, tf.Interval), tf.Interval,
			func(ctx context.Context) (model.Ticker, error) {
				return r.source.GetTicker(ctx, instrument)
			})
		if err != nil {
			r.cancel()
			r.wg.Wait()
			return err
		}
		r.wg.Add(1)
		go r.consumeTickers(feed)
	}

	for _, ixf := range r.cfg.Indices {
		index := ixf.IndexName
		feed, err := r.indices.Observe(ctx, IndexKey(index, ixf.Interval), ixf.Interval,
			func(ctx context.Context) (model.IndexPrice, error) {
				return r.source.GetIndexPrice(ctx, index)
			})
		if err != nil {
			r.cancel()
			r.wg.Wait()
			return err
		}
		r.wg.Add(1)
		go r.consumeIndices(feed)
	}

	r.logger.Info("recorder started",
		"tickers", len(r.cfg.Tickers),
		"indices", len(r.cfg.Indices),
	)
	return nil
}

// Stop unsubscribes every feed and waits for consumers to finish.
func (r *Recorder) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("recorder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Tickers:       r.tickerCount.Load(),
		Indices:       r.indexCount.Load(),
		FetchErrors:   r.fetchErrors.Load(),
		HandlerErrors: r.handlerError.Load(),
	}
}

func (r *Recorder) consumeTickers(feed *subscription.Feed[model.Ticker]) {
	defer r.wg.Done()
	defer feed.Close()

	for u := range feed.C() {
		if u.Err != nil {
			r.fetchErrors.Add(1)
			r.logger.Warn("ticker fetch failed", "key", feed.Key(), "seq", u.Seq, "err", u.Err)
			continue
		}

		t := u.Value
		r.tickerCount.Add(1)
		r.logger.Info("ticker",
			"instrument", t.InstrumentName,
			"mark_price", t.MarkPrice,
			"index_price", t.IndexPrice,
			"mark_iv", t.MarkIV,
			"seq", u.Seq,
		)

		if r.handler == nil {
			continue
		}
		if err := r.handler.HandleTicker(t); err != nil {
			r.handlerError.Add(1)
			r.logger.Warn("ticker handler failed", "instrument", t.InstrumentName, "err", err)
		}
	}
}

func (r *Recorder) consumeIndices(feed *subscription.Feed[model.IndexPrice]) {
	defer r.wg.Done()
	defer feed.Close()

	for u := range feed.C() {
		if u.Err != nil {
			r.fetchErrors.Add(1)
			r.logger.Warn("index fetch failed", "key", feed.Key(), "seq", u.Seq, "err", u.Err)
			continue
		}

		r.indexCount.Add(1)
		r.logger.Info("index price",
			"index", u.Value.IndexName,
			"price", u.Value.Price,
			"seq", u.Seq,
		)
	}
}

// ErrBufferFull is returned by a WriterHandler when the writer drops a row.
var ErrBufferFull = errors.New("writer buffer full")

// SnapshotWriter queues snapshots for storage. *writer.TickerWriter satisfies it.
type SnapshotWriter interface {
	Write(s model.TickerSnapshot) bool
}

// WriterHandler returns a handler that flattens tickers into w.
func WriterHandler(w SnapshotWriter) TickerHandler {
	return TickerHandlerFunc(func(t model.Ticker) error {
		if !w.Write(model.SnapshotFromTicker(t)) {
			return ErrBufferFull
		}
		return nil
	})
}
