package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/deribit-data/internal/model"
)

// ErrInstrumentNotFound is returned by Instrument when no loaded list
// contains the name.
var ErrInstrumentNotFound = errors.New("instrument not found")

// instrumentLoadTimeout bounds a shared instrument list load.
const instrumentLoadTimeout = 30 * time.Second

// GetInstruments fetches unexpired instruments for a currency and kind.
// It bypasses the cache.
func (c *Client) GetInstruments(ctx context.Context, currency, kind string) ([]model.Instrument, error) {
	var resp []APIInstrument
	params := InstrumentsParams{Currency: currency, Kind: kind, Expired: false}
	if err := c.call(ctx, MethodGetInstruments, params, &resp); err != nil {
		return nil, err
	}

	instruments := make([]model.Instrument, len(resp))
	for i := range resp {
		instruments[i] = resp[i].ToModel()
	}
	return instruments, nil
}

// Instruments returns the cached instruments for a currency and kind,
// fetching them on first access. Concurrent first accesses share one fetch.
func (c *Client) Instruments(ctx context.Context, currency, kind string) ([]model.Instrument, error) {
	key := pairKey(currency, kind)
	if list, ok := c.instruments.pair(key); ok {
		return list, nil
	}

	ch := c.loads.DoChan(key, func() (any, error) {
		if c.instruments.loaded(key) {
			return nil, nil
		}

		// Detached from the starting caller so joiners survive its cancellation.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), instrumentLoadTimeout)
		defer cancel()

		list, err := c.GetInstruments(lctx, currency, kind)
		if err != nil {
			return nil, err
		}
		c.instruments.add(key, list)

		c.logger.Info("instruments loaded",
			"currency", currency,
			"kind", kind,
			"count", len(list),
		)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	}

	list, _ := c.instruments.pair(key)
	return list, nil
}

// Instrument looks up one instrument by name. On a miss it loads the
// currency/kind pair implied by the name and looks again.
func (c *Client) Instrument(ctx context.Context, name string) (model.Instrument, error) {
	if inst, ok := c.instruments.get(name); ok {
		return inst, nil
	}

	currency, kind := PairFromName(name)
	if _, err := c.Instruments(ctx, currency, kind); err != nil {
		return model.Instrument{}, err
	}

	if inst, ok := c.instruments.get(name); ok {
		return inst, nil
	}
	return model.Instrument{}, fmt.Errorf("%w: %s", ErrInstrumentNotFound, name)
}

// CachedInstruments returns every instrument loaded so far.
func (c *Client) CachedInstruments() []model.Instrument {
	return c.instruments.all()
}

// PairFromName derives the get_instruments currency and kind from an
// instrument name:
//
//	BTC-27DEC24-60000-P -> BTC, option
//	BTC-PERPETUAL       -> BTC, future
//	XRP_USDC-PERPETUAL  -> USDC, future
//	ETH_USDC            -> USDC, spot
func PairFromName(name string) (currency, kind string) {
	parts := strings.Split(name, "-")

	currency = parts[0]
	if i := strings.IndexByte(currency, '_'); i >= 0 {
		currency = currency[i+1:]
	}

	switch {
	case len(parts) == 1:
		kind = model.KindSpot
	case len(parts) == 4 && (parts[3] == "C" || parts[3] == "P"):
		kind = model.KindOption
	default:
		kind = model.KindFuture
	}
	return currency, kind
}

func pairKey(currency, kind string) string {
	return strings.ToUpper(currency) + "/" + kind
}

// instrumentCache is a flat append-only list with a name index. Entries
// are never removed or replaced.
type instrumentCache struct {
	mu     sync.RWMutex
	list   []model.Instrument
	byName map[string]int
	pairs  map[string][]int
}

func newInstrumentCache() *instrumentCache {
	return &instrumentCache{
		byName: make(map[string]int),
		pairs:  make(map[string][]int),
	}
}

func (c *instrumentCache) add(key string, list []model.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pairs[key]; ok {
		return
	}

	idx := make([]int, 0, len(list))
	for _, inst := range list {
		i, ok := c.byName[inst.Name]
		if !ok {
			i = len(c.list)
			c.list = append(c.list, inst)
			c.byName[inst.Name] = i
		}
		idx = append(idx, i)
	}
	c.pairs[key] = idx
}

func (c *instrumentCache) loaded(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.pairs[key]
	return ok
}

func (c *instrumentCache) pair(key string) ([]model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.pairs[key]
	if !ok {
		return nil, false
	}

	out := make([]model.Instrument, len(idx))
	for j, i := range idx {
		out[j] = c.list[i]
	}
	return out, true
}

func (c *instrumentCache) get(name string) (model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byName[name]
	if !ok {
		return model.Instrument{}, false
	}
	return c.list[i], true
}

func (c *instrumentCache) all() []model.Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Instrument, len(c.list))
	copy(out, c.list)
	return out
}
