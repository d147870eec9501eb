// Package connection implements the WebSocket transport to Deribit.
//
// A Client owns exactly one connection:
//   - Writes are serialized, so concurrent callers never interleave frames
//   - Inbound frames are delivered on Messages() one at a time, in arrival order
//   - A keepalive ping runs in the background and staleness is reported on Errors()
//
// The transport does not reconnect. Once Errors() yields, the client is done
// and callers build a new one.
package connection
