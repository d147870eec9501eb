package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/rickgao/deribit-data/internal/metrics"
)

// ErrCacheClosed is returned by Observe after Close.
var ErrCacheClosed = errors.New("subscription cache closed")

// FetchFunc performs one upstream fetch.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Config holds cache configuration.
type Config struct {
	SubscriberBuffer int           // Pending updates kept per subscriber (default: 16)
	FetchTimeout     time.Duration // Budget for one fetch (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		SubscriberBuffer: 16,
		FetchTimeout:     30 * time.Second,
	}
}

// Cache shares fetch cycles between observers of the same key.
type Cache[T any] struct {
	cfg    Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  map[string]*entry[T]
	retiring map[string]chan struct{} // done of evicted cycles, by key
	closed   bool

	oneshots singleflight.Group
}

// entry is one live periodic cycle.
type entry[T any] struct {
	key      string
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{} // closed when run returns

	mu     sync.Mutex
	subs   map[uuid.UUID]*Feed[T]
	latest *Update[T]
	seq    uint64
}

// New creates an empty cache.
func New[T any](cfg Config, logger *slog.Logger) *Cache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultConfig()
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = d.SubscriberBuffer
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = d.FetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries:  make(map[string]*entry[T]),
		retiring: make(map[string]chan struct{}),
	}
}

// Key builds a cache key from an endpoint name and every parameter that
// distinguishes one feed from another, including interval and flags:
//
//	Key("GetTicker", "BTC-PERPETUAL", "mark_price", 5, false)
//	  == "GetTicker(BTC-PERPETUAL, mark_price, 5, false)"
func Key(endpoint string, parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return endpoint + "(" + strings.Join(strs, ", ") + ")"
}

// Observe subscribes to key.
//
// If a periodic cycle for key is live, the returned feed joins it and
// fetch is ignored. Otherwise a positive interval starts a new cycle and
// a non-positive interval performs a single shared fetch. The feed closes
// on its own when ctx ends.
func (c *Cache[T]) Observe(ctx context.Context, key string, interval time.Duration, fetch FetchFunc[T]) (*Feed[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCacheClosed
	}

	e, ok := c.entries[key]
	if !ok && interval <= 0 {
		c.wg.Add(1)
		c.mu.Unlock()
		return c.observeOnce(ctx, key, fetch), nil
	}

	if !ok {
		e = c.startLocked(key, interval, fetch)
	} else if e.interval != interval {
		c.logger.Debug("joining feed with a different interval",
			"key", key,
			"interval", e.interval,
			"requested", interval,
		)
	}

	f := newFeed[T](key, c.cfg.SubscriberBuffer)
	f.unsubscribe = func() { c.unsubscribe(key, f.id) }
	e.join(f)
	c.mu.Unlock()

	f.bind(ctx)
	return f, nil
}

// startLocked registers a new entry and starts its cycle. c.mu must be held.
func (c *Cache[T]) startLocked(key string, interval time.Duration, fetch FetchFunc[T]) *entry[T] {
	ctx, cancel := context.WithCancel(c.ctx)
	e := &entry[T]{
		key:      key,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
		subs:     make(map[uuid.UUID]*Feed[T]),
	}
	c.entries[key] = e
	metrics.FeedsActive.Inc()

	prev := c.retiring[key]
	delete(c.retiring, key)

	c.wg.Add(1)
	go c.run(ctx, e, prev, fetch)

	c.logger.Debug("feed started", "key", key, "interval", interval)
	return e
}

// run fetches immediately, then on every tick. Fetches never overlap,
// including with an evicted cycle for the same key: prev, when set, is
// that cycle's done channel. run waits for it even when cancelled, so
// done channels form a chain and a later cycle waits for all of them.
func (c *Cache[T]) run(ctx context.Context, e *entry[T], prev <-chan struct{}, fetch FetchFunc[T]) {
	defer c.wg.Done()
	defer c.retire(e)

	if prev != nil {
		<-prev
		if ctx.Err() != nil {
			return
		}
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	c.fetchInto(ctx, e, fetch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fetchInto(ctx, e, fetch)
		}
	}
}

// retire closes e.done and forgets it once no later cycle is waiting on it.
func (c *Cache[T]) retire(e *entry[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(e.done)
	if c.retiring[e.key] == e.done {
		delete(c.retiring, e.key)
	}
}

func (c *Cache[T]) fetchInto(ctx context.Context, e *entry[T], fetch FetchFunc[T]) {
	fctx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	v, err := fetch(fctx)
	cancel()

	if ctx.Err() != nil {
		// Evicted or closed mid-fetch; nobody is listening.
		return
	}

	if err != nil {
		metrics.FeedFetches.WithLabelValues("error").Inc()
		c.logger.Warn("feed fetch failed", "key", e.key, "error", err)
	} else {
		metrics.FeedFetches.WithLabelValues("ok").Inc()
	}

	e.broadcast(v, err)
}

// observeOnce runs a single fetch shared with concurrent one-shot
// observers of the same key, then closes the feed. The caller has
// already added to c.wg.
func (c *Cache[T]) observeOnce(ctx context.Context, key string, fetch FetchFunc[T]) *Feed[T] {
	f := newFeed[T](key, 1)

	go func() {
		defer c.wg.Done()
		defer f.end()

		v, err, _ := c.oneshots.Do(key, func() (any, error) {
			fctx, cancel := context.WithTimeout(c.ctx, c.cfg.FetchTimeout)
			defer cancel()

			v, err := fetch(fctx)
			if err != nil {
				metrics.FeedFetches.WithLabelValues("error").Inc()
			} else {
				metrics.FeedFetches.WithLabelValues("ok").Inc()
			}
			return v, err
		})

		val, _ := v.(T)
		f.push(Update[T]{Value: val, Err: err, FetchedAt: time.Now(), Seq: 1})
	}()

	f.bind(ctx)
	return f
}

// unsubscribe removes one subscriber and evicts the entry when it was
// the last one.
func (c *Cache[T]) unsubscribe(key string, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}

	if e.leave(id) > 0 {
		return
	}

	delete(c.entries, key)
	c.retiring[key] = e.done
	e.cancel()
	metrics.FeedsActive.Dec()

	c.logger.Debug("feed evicted", "key", key)
}

// Keys returns the keys of live periodic feeds, sorted.
func (c *Cache[T]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of live periodic feeds.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Subscribers returns the number of open feeds on key.
func (c *Cache[T]) Subscribers(key string) int {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if !ok {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

// Close stops every cycle and closes every feed. Observe fails afterwards.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*entry[T])
	c.mu.Unlock()

	c.cancel()
	for _, e := range entries {
		e.endAll()
		metrics.FeedsActive.Dec()
	}
	c.wg.Wait()

	c.logger.Debug("subscription cache closed", "feeds", len(entries))
}

// join adds f and hands it the latest update, if any. Both happen under
// e.mu so f can never miss or duplicate a broadcast.
func (e *entry[T]) join(f *Feed[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.latest != nil {
		f.push(*e.latest)
	}
	e.subs[f.id] = f
	metrics.FeedSubscribers.Inc()
}

// leave removes a subscriber and returns how many remain.
func (e *entry[T]) leave(id uuid.UUID) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.subs[id]; ok {
		delete(e.subs, id)
		metrics.FeedSubscribers.Dec()
	}
	return len(e.subs)
}

func (e *entry[T]) broadcast(v T, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	u := Update[T]{Value: v, Err: err, FetchedAt: time.Now(), Seq: e.seq}
	e.latest = &u

	for _, f := range e.subs {
		f.push(u)
	}
}

func (e *entry[T]) endAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, f := range e.subs {
		f.end()
		delete(e.subs, id)
		metrics.FeedSubscribers.Dec()
	}
}
