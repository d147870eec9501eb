// Package rpc correlates JSON-RPC 2.0 requests with their replies over a
// single connection.Client.
//
// Every request gets a fresh id from a strictly increasing counter and a
// single-use Pending handle, registered before the bytes are written. The
// dispatch loop (Run) reads the transport's message stream, looks up the id
// and resolves exactly one handle. Replies for ids nobody is waiting on are
// dropped.
//
// Result decoding happens in the caller's goroutine: a malformed reply
// fails only the caller it belongs to, never the dispatch loop.
package rpc
