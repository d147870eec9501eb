package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/deribit-data/internal/connection"
	"github.com/rickgao/deribit-data/internal/metrics"
)

// Correlator multiplexes concurrent calls over one transport.
type Correlator struct {
	conn   connection.Client
	logger *slog.Logger

	nextID atomic.Int64

	mu       sync.Mutex
	pending  map[int64]*Pending
	closed   bool
	closeErr error
}

// Pending is a single-use handle for one outstanding request.
type Pending struct {
	id     int64
	method string
	sentAt time.Time

	c  *Correlator
	ch chan reply // capacity 1, written at most once
}

type reply struct {
	msg connection.TimestampedMessage
	err error
}

// NewCorrelator creates a correlator over conn. Run must be started for
// replies to be delivered.
func NewCorrelator(conn connection.Client, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]*Pending),
	}
}

// Send writes one request and returns its handle.
//
// The handle is registered before the bytes hit the wire, so a reply can
// never beat its registration. If the transport is down the call fails
// with connection.ErrNotConnected and nothing is left registered.
func (c *Correlator) Send(ctx context.Context, method string, params any) (*Pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.conn.IsConnected() {
		metrics.RPCRequests.WithLabelValues(method, "not_connected").Inc()
		return nil, connection.ErrNotConnected
	}

	p := &Pending{
		id:     c.nextID.Add(1),
		method: method,
		c:      c,
		ch:     make(chan reply, 1),
	}

	data, err := json.Marshal(Request{
		JSONRPC: Version,
		ID:      p.id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		return nil, err
	}
	c.pending[p.id] = p
	c.mu.Unlock()
	metrics.RPCPending.Inc()

	p.sentAt = time.Now()
	if err := c.conn.Send(data); err != nil {
		c.remove(p.id)
		metrics.RPCRequests.WithLabelValues(method, "send_error").Inc()
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	c.logger.Debug("rpc request sent", "id", p.id, "method", method)

	return p, nil
}

// Call sends a request and decodes its result into result (which may be nil).
func (c *Correlator) Call(ctx context.Context, method string, params, result any) error {
	p, err := c.Send(ctx, method, params)
	if err != nil {
		return err
	}
	return p.Wait(ctx, result)
}

// Pending returns the number of outstanding calls.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run consumes the transport's message stream until ctx ends or the
// transport fails. On return every outstanding call fails with ErrClosed.
func (c *Correlator) Run(ctx context.Context) error {
	msgs := c.conn.Messages()
	errs := c.conn.Errors()

	for {
		select {
		case <-ctx.Done():
			c.shutdown(ctx.Err())
			return ctx.Err()

		case err := <-errs:
			// Frames read before the failure may still hold replies.
			c.drain(msgs)
			c.shutdown(err)
			return fmt.Errorf("transport: %w", err)

		case msg := <-msgs:
			c.dispatch(msg)
		}
	}
}

func (c *Correlator) drain(msgs <-chan connection.TimestampedMessage) {
	for {
		select {
		case msg := <-msgs:
			c.dispatch(msg)
		default:
			return
		}
	}
}

// dispatch parses only the envelope id and hands the raw frame to its
// waiter. It never blocks and never fails.
func (c *Correlator) dispatch(msg connection.TimestampedMessage) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		c.logger.Warn("dropping undecodable message", "error", err, "size", len(msg.Data))
		metrics.RPCCorrelationMisses.Inc()
		return
	}

	if env.ID == nil {
		c.logger.Debug("dropping notification", "method", env.Method)
		return
	}

	c.mu.Lock()
	p, ok := c.pending[*env.ID]
	if ok {
		delete(c.pending, *env.ID)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("no pending call for reply", "id", *env.ID)
		metrics.RPCCorrelationMisses.Inc()
		return
	}

	metrics.RPCPending.Dec()
	metrics.RPCLatency.WithLabelValues(p.method).Observe(msg.ReceivedAt.Sub(p.sentAt).Seconds())
	p.ch <- reply{msg: msg}
}

// remove drops id from the table. It reports whether the entry was present.
func (c *Correlator) remove(id int64) bool {
	c.mu.Lock()
	_, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()

	if ok {
		metrics.RPCPending.Dec()
	}
	return ok
}

func (c *Correlator) shutdown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = fmt.Errorf("%w: %w", ErrClosed, cause)
	pending := c.pending
	c.pending = make(map[int64]*Pending)
	c.mu.Unlock()

	for _, p := range pending {
		metrics.RPCPending.Dec()
		p.ch <- reply{err: c.closeErr}
	}

	if len(pending) > 0 {
		c.logger.Info("failed outstanding calls on shutdown", "count", len(pending), "cause", cause)
	}
}

// ID returns the request id.
func (p *Pending) ID() int64 {
	return p.id
}

// Method returns the request method.
func (p *Pending) Method() string {
	return p.method
}

// Response waits for the reply envelope. A remote error is returned as
// *Error alongside the envelope.
//
// A handle resolves once: call Response or Wait at most once per handle.
func (p *Pending) Response(ctx context.Context) (*Response, error) {
	select {
	case <-ctx.Done():
		if p.c.remove(p.id) {
			metrics.RPCRequests.WithLabelValues(p.method, "canceled").Inc()
			return nil, ctx.Err()
		}
		// Resolved while we were giving up; take the reply.
		r := <-p.ch
		return p.decode(r)

	case r := <-p.ch:
		return p.decode(r)
	}
}

// Wait waits for the reply and decodes its result into result. A nil
// result discards the payload.
func (p *Pending) Wait(ctx context.Context, result any) error {
	resp, err := p.Response(ctx)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if err := json.Unmarshal(resp.Result, result); err != nil {
		metrics.RPCRequests.WithLabelValues(p.method, "decode_error").Inc()
		return fmt.Errorf("%w: %s result: %v", ErrDecode, p.method, err)
	}
	return nil
}

func (p *Pending) decode(r reply) (*Response, error) {
	if r.err != nil {
		metrics.RPCRequests.WithLabelValues(p.method, "closed").Inc()
		return nil, r.err
	}

	var resp Response
	if err := json.Unmarshal(r.msg.Data, &resp); err != nil {
		metrics.RPCRequests.WithLabelValues(p.method, "decode_error").Inc()
		return nil, fmt.Errorf("%w: %s envelope: %v", ErrDecode, p.method, err)
	}

	if resp.Error != nil {
		metrics.RPCRequests.WithLabelValues(p.method, "remote_error").Inc()
		return &resp, resp.Error
	}

	metrics.RPCRequests.WithLabelValues(p.method, "ok").Inc()
	return &resp, nil
}
