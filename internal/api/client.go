package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Caller performs one JSON-RPC call and decodes its result.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// Client provides access to the Deribit API.
type Client struct {
	rpc     Caller
	logger  *slog.Logger
	limiter *rate.Limiter // nil = unlimited
	timeout time.Duration // 0 = caller's deadline only

	instruments *instrumentCache
	loads       singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new API client on top of rpc.
func NewClient(rpc Caller, opts ...ClientOption) *Client {
	c := &Client{
		rpc:         rpc,
		logger:      slog.Default(),
		instruments: newInstrumentCache(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit caps outbound requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCallTimeout bounds each call, including the rate limit wait.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// call waits for the limiter, then performs the request.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit: %w", method, err)
		}
	}

	if err := c.rpc.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
