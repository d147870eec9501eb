package subscription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// counter returns a fetch func yielding 1, 2, 3, ... and the call count.
func counter() (FetchFunc[int], *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}, &calls
}

func next(t *testing.T, f *Feed[int]) Update[int] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u, err := f.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return u
}

func newTestCache(t *testing.T, cfg Config) *Cache[int] {
	t.Helper()
	c := New[int](cfg, nil)
	t.Cleanup(c.Close)
	return c
}

func TestKey(t *testing.T) {
	got := Key("GetTicker", "BTC-PERPETUAL", "mark_price,mark_iv", 5, false)
	want := "GetTicker(BTC-PERPETUAL, mark_price,mark_iv, 5, false)"
	if got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
	if Key("GetIndexPrice", "btc_usd", 0) == Key("GetIndexPrice", "btc_usd", 5) {
		t.Error("interval must be part of the key")
	}
}

func TestObserve_SharedCycle(t *testing.T) {
	c := newTestCache(t, Config{})
	fetch, calls := counter()

	first, err := c.Observe(context.Background(), "k", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	u := next(t, first)
	if u.Value != 1 || u.Seq != 1 {
		t.Errorf("first update = %+v, want value 1 seq 1", u)
	}

	otherFetch, otherCalls := counter()
	second, err := c.Observe(context.Background(), "k", time.Hour, otherFetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	// The late joiner gets the latest value immediately.
	u = next(t, second)
	if u.Value != 1 || u.Seq != 1 {
		t.Errorf("join update = %+v, want value 1 seq 1", u)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
	if n := otherCalls.Load(); n != 0 {
		t.Errorf("joining fetch called %d times, want 0", n)
	}
	if c.Len() != 1 || c.Subscribers("k") != 2 {
		t.Errorf("Len = %d, Subscribers = %d, want 1 and 2", c.Len(), c.Subscribers("k"))
	}
	if first.ID() == second.ID() {
		t.Error("subscribers must have distinct ids")
	}
}

func TestObserve_PeriodicSequence(t *testing.T) {
	c := newTestCache(t, Config{})
	fetch, _ := counter()

	f, err := c.Observe(context.Background(), "k", 10*time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	var last uint64
	for i := 0; i < 3; i++ {
		u := next(t, f)
		if u.Seq <= last {
			t.Errorf("seq %d after %d", u.Seq, last)
		}
		if uint64(u.Value) != u.Seq {
			t.Errorf("value %d delivered with seq %d", u.Value, u.Seq)
		}
		last = u.Seq
	}
}

func TestObserve_FetchesNeverOverlap(t *testing.T) {
	c := newTestCache(t, Config{})

	var inFlight, maxInFlight, calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		return int(calls.Add(1)), nil
	}

	f, err := c.Observe(context.Background(), "slow", 5*time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	for i := 0; i < 3; i++ {
		next(t, f)
	}

	if m := maxInFlight.Load(); m != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", m)
	}
}

func TestObserve_ReobserveWaitsForEvictedFetch(t *testing.T) {
	c := newTestCache(t, Config{})

	var inFlight, maxInFlight, calls atomic.Int32
	started := make(chan struct{}, 4)
	// Ignores ctx, so an evicted cycle's fetch keeps running.
	fetch := func(ctx context.Context) (int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		started <- struct{}{}
		time.Sleep(50 * time.Millisecond)
		return int(calls.Add(1)), nil
	}

	old, err := c.Observe(context.Background(), "k", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	<-started
	old.Close()

	fresh, err := c.Observe(context.Background(), "k", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if u := next(t, fresh); u.Seq != 1 {
		t.Errorf("fresh cycle seq = %d, want 1", u.Seq)
	}

	if m := maxInFlight.Load(); m != 1 {
		t.Errorf("max concurrent fetches for key = %d, want 1", m)
	}
}

func TestObserve_ErrorsAreUpdates(t *testing.T) {
	c := newTestCache(t, Config{})

	boom := errors.New("upstream down")
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 42, nil
	}

	f, err := c.Observe(context.Background(), "k", 10*time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	u := next(t, f)
	if !errors.Is(u.Err, boom) {
		t.Errorf("first update err = %v, want %v", u.Err, boom)
	}

	u = next(t, f)
	if u.Err != nil || u.Value != 42 {
		t.Errorf("second update = %+v, want value 42", u)
	}
}

func TestObserve_OneShot(t *testing.T) {
	c := newTestCache(t, Config{})
	fetch, calls := counter()

	f, err := c.Observe(context.Background(), "once", 0, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	u := next(t, f)
	if u.Value != 1 || u.Err != nil {
		t.Errorf("update = %+v, want value 1", u)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Next(ctx); !errors.Is(err, ErrFeedClosed) {
		t.Errorf("expected ErrFeedClosed after the single update, got %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 (one-shots are not registered)", c.Len())
	}

	// A later one-shot fetches again.
	f2, _ := c.Observe(context.Background(), "once", -1, fetch)
	if u := next(t, f2); u.Value != 2 {
		t.Errorf("second one-shot value = %d, want 2", u.Value)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fetch calls = %d, want 2", n)
	}
}

func TestObserve_ConcurrentOneShotsShareFetch(t *testing.T) {
	c := newTestCache(t, Config{})

	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	feeds := make([]*Feed[int], 5)
	for i := range feeds {
		f, err := c.Observe(context.Background(), "shared", 0, fetch)
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
		feeds[i] = f
	}

	time.Sleep(50 * time.Millisecond)
	close(release)

	for _, f := range feeds {
		if u := next(t, f); u.Value != 7 {
			t.Errorf("value = %d, want 7", u.Value)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestObserve_EvictsAfterLastClose(t *testing.T) {
	c := newTestCache(t, Config{})
	fetch, calls := counter()

	a, _ := c.Observe(context.Background(), "k", 10*time.Millisecond, fetch)
	b, _ := c.Observe(context.Background(), "k", 10*time.Millisecond, fetch)
	next(t, a)

	a.Close()
	if c.Len() != 1 {
		t.Fatalf("Len = %d after first close, want 1", c.Len())
	}

	b.Close()
	b.Close() // idempotent
	if c.Len() != 0 {
		t.Fatalf("Len = %d after last close, want 0", c.Len())
	}

	// Both channels are closed; drain anything buffered before the close.
	for range a.C() {
	}
	for range b.C() {
	}

	time.Sleep(30 * time.Millisecond)
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != stopped {
		t.Errorf("cycle kept fetching after eviction: %d -> %d", stopped, n)
	}

	// A fresh observer starts a fresh cycle.
	fresh, _ := c.Observe(context.Background(), "k", time.Hour, fetch)
	if u := next(t, fresh); u.Seq != 1 {
		t.Errorf("fresh cycle seq = %d, want 1", u.Seq)
	}
}

func TestObserve_ContextEndsFeed(t *testing.T) {
	c := newTestCache(t, Config{})
	fetch, _ := counter()

	ctx, cancel := context.WithCancel(context.Background())
	f, err := c.Observe(ctx, "k", time.Hour, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	next(t, f)

	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-f.C():
			if !ok {
				if c.Len() != 0 {
					t.Errorf("Len = %d, want 0", c.Len())
				}
				return
			}
		case <-deadline:
			t.Fatal("feed not closed after context cancel")
		}
	}
}

func TestObserve_SlowSubscriberDropsOldest(t *testing.T) {
	c := newTestCache(t, Config{SubscriberBuffer: 2})
	fetch, calls := counter()

	f, err := c.Observe(context.Background(), "k", 5*time.Millisecond, fetch)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}

	// Never read while the cycle runs well past the buffer size.
	for calls.Load() < 6 {
		time.Sleep(5 * time.Millisecond)
	}
	latest, ok := f.Latest()
	if !ok {
		t.Fatal("Latest not set")
	}

	// Closing keeps whatever is buffered readable.
	f.Close()
	var got []Update[int]
	for u := range f.C() {
		got = append(got, u)
	}

	if len(got) == 0 || len(got) > 2 {
		t.Fatalf("buffered %d updates, want 1 or 2", len(got))
	}
	if got[0].Seq == 1 {
		t.Error("oldest update should have been dropped")
	}
	if got[len(got)-1].Seq < latest.Seq {
		t.Errorf("newest buffered seq %d, latest seen %d", got[len(got)-1].Seq, latest.Seq)
	}
}

func TestCache_Close(t *testing.T) {
	c := New[int](Config{}, nil)
	fetch, _ := counter()

	f, _ := c.Observe(context.Background(), "a", time.Hour, fetch)
	c.Observe(context.Background(), "b", time.Hour, fetch)
	next(t, f)

	if keys := c.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys = %v, want [a b]", keys)
	}

	c.Close()
	c.Close()

	for range f.C() {
	}
	f.Close() // after cache close is a no-op

	if _, err := c.Observe(context.Background(), "a", time.Hour, fetch); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("expected ErrCacheClosed, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestObserve_ConcurrentJoinersSeeEveryUpdate(t *testing.T) {
	c := newTestCache(t, Config{SubscriberBuffer: 64})
	fetch, _ := counter()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := c.Observe(context.Background(), "k", 5*time.Millisecond, fetch)
			if err != nil {
				t.Errorf("Observe: %v", err)
				return
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			// Sequence numbers seen by one subscriber are gap free.
			first, err := f.Next(ctx)
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			for want := first.Seq + 1; want < first.Seq+4; want++ {
				u, err := f.Next(ctx)
				if err != nil {
					t.Errorf("Next: %v", err)
					return
				}
				if u.Seq != want {
					t.Errorf("seq = %d, want %d", u.Seq, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}
