package api

import (
	"context"
	"encoding/json"

	"github.com/rickgao/deribit-data/internal/model"
)

// GetTicker fetches the current ticker for one instrument.
func (c *Client) GetTicker(ctx context.Context, instrument string) (model.Ticker, error) {
	var resp APITicker
	if err := c.call(ctx, MethodTicker, TickerParams{InstrumentName: instrument}, &resp); err != nil {
		return model.Ticker{}, err
	}
	return resp.ToModel(NowMicro()), nil
}

// GetTickerRaw fetches the ticker result object undecoded, for callers
// that pick fields by path (see SelectAttributes).
func (c *Client) GetTickerRaw(ctx context.Context, instrument string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.call(ctx, MethodTicker, TickerParams{InstrumentName: instrument}, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetIndexPrice fetches the current value of an index such as btc_usd.
func (c *Client) GetIndexPrice(ctx context.Context, index string) (model.IndexPrice, error) {
	var resp APIIndexPrice
	if err := c.call(ctx, MethodGetIndexPrice, IndexPriceParams{IndexName: index}, &resp); err != nil {
		return model.IndexPrice{}, err
	}
	return resp.ToModel(index, NowMicro()), nil
}
