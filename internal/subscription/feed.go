package subscription

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/deribit-data/internal/metrics"
)

// ErrFeedClosed is returned by Next once the feed's channel is closed.
var ErrFeedClosed = errors.New("feed closed")

// Update is one completed fetch. Exactly one of Value and Err is meaningful.
type Update[T any] struct {
	Value     T
	Err       error
	FetchedAt time.Time
	Seq       uint64 // 1 for the first fetch of a cycle
}

// Feed is one subscriber's view of a shared cycle.
type Feed[T any] struct {
	id  uuid.UUID
	key string
	ch  chan Update[T]

	mu     sync.Mutex
	closed bool
	latest *Update[T]

	unsubscribe func()
	stopAfter   func() bool // guarded by mu
	closeOnce   sync.Once
}

func newFeed[T any](key string, buffer int) *Feed[T] {
	return &Feed[T]{
		id:  uuid.New(),
		key: key,
		ch:  make(chan Update[T], buffer),
	}
}

// ID identifies this subscriber.
func (f *Feed[T]) ID() uuid.UUID {
	return f.id
}

// Key returns the cache key the feed observes.
func (f *Feed[T]) Key() string {
	return f.key
}

// C returns the update channel. It is closed when the feed ends.
func (f *Feed[T]) C() <-chan Update[T] {
	return f.ch
}

// Latest returns the most recent update offered to this feed, whether or
// not it has been received from C yet.
func (f *Feed[T]) Latest() (Update[T], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latest == nil {
		return Update[T]{}, false
	}
	return *f.latest, true
}

// Next waits for the next update.
func (f *Feed[T]) Next(ctx context.Context) (Update[T], error) {
	select {
	case u, ok := <-f.ch:
		if !ok {
			return Update[T]{}, ErrFeedClosed
		}
		return u, nil
	case <-ctx.Done():
		return Update[T]{}, ctx.Err()
	}
}

// bind closes the feed when ctx ends.
func (f *Feed[T]) bind(ctx context.Context) {
	stop := context.AfterFunc(ctx, f.Close)

	f.mu.Lock()
	f.stopAfter = stop
	f.mu.Unlock()
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (f *Feed[T]) Close() {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		stop := f.stopAfter
		f.mu.Unlock()

		if stop != nil {
			stop()
		}
		if f.unsubscribe != nil {
			f.unsubscribe()
		}
		f.end()
	})
}

// push offers u without blocking. When the buffer is full the oldest
// pending update is discarded to make room.
func (f *Feed[T]) push(u Update[T]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.latest = &u

	select {
	case f.ch <- u:
		return
	default:
	}

	select {
	case <-f.ch:
		metrics.FeedUpdatesDropped.Inc()
	default:
	}

	select {
	case f.ch <- u:
	default:
		metrics.FeedUpdatesDropped.Inc()
	}
}

// end closes the channel without touching the cache.
func (f *Feed[T]) end() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	close(f.ch)
}
