package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rickgao/deribit-data/internal/model"
	"github.com/rickgao/deribit-data/internal/subscription"
)

// mockSource counts fetches and fails ticker fetches for failInstrument.
type mockSource struct {
	tickerCalls    atomic.Int32
	indexCalls     atomic.Int32
	failInstrument string
}

func (m *mockSource) GetTicker(ctx context.Context, instrument string) (model.Ticker, error) {
	n := m.tickerCalls.Add(1)
	if instrument == m.failInstrument {
		return model.Ticker{}, errors.New("public/ticker: instrument not found")
	}
	return model.Ticker{
		InstrumentName: instrument,
		ExchangeTS:     1705320000000000 + int64(n),
		MarkPrice:      43000,
		IndexPrice:     42990,
	}, nil
}

func (m *mockSource) GetIndexPrice(ctx context.Context, index string) (model.IndexPrice, error) {
	m.indexCalls.Add(1)
	return model.IndexPrice{IndexName: index, Price: 42990}, nil
}

func newCaches(t *testing.T) (*subscription.Cache[model.Ticker], *subscription.Cache[model.IndexPrice]) {
	t.Helper()
	tickers := subscription.New[model.Ticker](subscription.Config{}, nil)
	indices := subscription.New[model.IndexPrice](subscription.Config{}, nil)
	t.Cleanup(tickers.Close)
	t.Cleanup(indices.Close)
	return tickers, indices
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRecorder_RecordsFeeds(t *testing.T) {
	tickers, indices := newCaches(t)
	source := &mockSource{}

	var mu sync.Mutex
	var got []model.Ticker
	handler := TickerHandlerFunc(func(tk model.Ticker) error {
		mu.Lock()
		got = append(got, tk)
		mu.Unlock()
		return nil
	})

	cfg := Config{
		Tickers: []TickerFeed{
			{Instrument: "BTC-PERPETUAL", Interval: 10 * time.Millisecond},
			{Instrument: "ETH-PERPETUAL", Interval: 10 * time.Millisecond},
		},
		Indices: []IndexFeed{{IndexName: "btc_usd", Interval: 10 * time.Millisecond}},
	}

	r := New(cfg, source, tickers, indices, handler, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, "tickers and indices", func() bool {
		s := r.Stats()
		return s.Tickers >= 4 && s.Indices >= 2
	})

	if tickers.Len() != 2 || indices.Len() != 1 {
		t.Errorf("live feeds = %d tickers, %d indices; want 2 and 1", tickers.Len(), indices.Len())
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if tickers.Len() != 0 || indices.Len() != 0 {
		t.Errorf("feeds still live after Stop: %d tickers, %d indices", tickers.Len(), indices.Len())
	}

	mu.Lock()
	defer mu.Unlock()
	seen := map[string]bool{}
	for _, tk := range got {
		seen[tk.InstrumentName] = true
	}
	if !seen["BTC-PERPETUAL"] || !seen["ETH-PERPETUAL"] {
		t.Errorf("handler saw %v, want both instruments", seen)
	}
}

func TestRecorder_FetchErrorsDoNotStopFeed(t *testing.T) {
	tickers, indices := newCaches(t)
	source := &mockSource{failInstrument: "BTC-BAD"}

	var handled atomic.Int32
	handler := TickerHandlerFunc(func(model.Ticker) error {
		handled.Add(1)
		return nil
	})

	cfg := Config{Tickers: []TickerFeed{{Instrument: "BTC-BAD", Interval: 10 * time.Millisecond}}}
	r := New(cfg, source, tickers, indices, handler, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop(context.Background())

	waitFor(t, "repeated fetch errors", func() bool { return r.Stats().FetchErrors >= 3 })

	if n := handled.Load(); n != 0 {
		t.Errorf("handler called %d times for failed fetches", n)
	}
}

func TestRecorder_HandlerErrorsCounted(t *testing.T) {
	tickers, indices := newCaches(t)

	handler := TickerHandlerFunc(func(model.Ticker) error {
		return errors.New("disk full")
	})

	cfg := Config{Tickers: []TickerFeed{{Instrument: "BTC-PERPETUAL", Interval: 10 * time.Millisecond}}}
	r := New(cfg, &mockSource{}, tickers, indices, handler, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop(context.Background())

	waitFor(t, "handler errors", func() bool { return r.Stats().HandlerErrors >= 2 })
}

func TestRecorder_SharesFeedWithOtherObservers(t *testing.T) {
	tickers, indices := newCaches(t)
	source := &mockSource{}

	cfg := Config{Tickers: []TickerFeed{{Instrument: "BTC-PERPETUAL", Interval: time.Hour}}}
	r := New(cfg, source, tickers, indices, nil, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop(context.Background())

	waitFor(t, "first ticker", func() bool { return r.Stats().Tickers >= 1 })

	// Another observer of the same key joins without a new fetch.
	feed, err := tickers.Observe(context.Background(), TickerKey("BTC-PERPETUAL", time.Hour), time.Hour,
		func(context.Context) (model.Ticker, error) {
			t.Error("joining observer must not fetch")
			return model.Ticker{}, nil
		})
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := feed.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if u.Value.InstrumentName != "BTC-PERPETUAL" {
		t.Errorf("InstrumentName = %q, want BTC-PERPETUAL", u.Value.InstrumentName)
	}
	if n := source.tickerCalls.Load(); n != 1 {
		t.Errorf("ticker fetches = %d, want 1", n)
	}
}

func TestRecorder_StartOnClosedCache(t *testing.T) {
	tickers, indices := newCaches(t)
	tickers.Close()

	cfg := Config{Tickers: []TickerFeed{{Instrument: "BTC-PERPETUAL", Interval: time.Hour}}}
	r := New(cfg, &mockSource{}, tickers, indices, nil, nil)
	if err := r.Start(context.Background()); !errors.Is(err, subscription.ErrCacheClosed) {
		t.Errorf("Start() error = %v, want ErrCacheClosed", err)
	}
}

type fakeWriter struct {
	accept bool
	rows   []model.TickerSnapshot
}

func (f *fakeWriter) Write(s model.TickerSnapshot) bool {
	if !f.accept {
		return false
	}
	f.rows = append(f.rows, s)
	return true
}

func TestWriterHandler(t *testing.T) {
	w := &fakeWriter{accept: true}
	h := WriterHandler(w)

	tk := model.Ticker{InstrumentName: "BTC-PERPETUAL", ExchangeTS: 42, MarkPrice: 43000}
	if err := h.HandleTicker(tk); err != nil {
		t.Fatalf("HandleTicker: %v", err)
	}
	if len(w.rows) != 1 || w.rows[0].InstrumentName != "BTC-PERPETUAL" || w.rows[0].ExchangeTS != 42 {
		t.Errorf("rows = %+v", w.rows)
	}

	w.accept = false
	if err := h.HandleTicker(tk); !errors.Is(err, ErrBufferFull) {
		t.Errorf("HandleTicker on full writer = %v, want ErrBufferFull", err)
	}
}

func TestKeys(t *testing.T) {
	if got := TickerKey("BTC-PERPETUAL", 5*time.Second); got != "GetTicker(BTC-PERPETUAL, 5s)" {
		t.Errorf("TickerKey = %q", got)
	}
	if got := IndexKey("btc_usd", time.Second); got != "GetIndexPrice(btc_usd, 1s)" {
		t.Errorf("IndexKey = %q", got)
	}
}
