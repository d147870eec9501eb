// Package api provides typed access to the Deribit public JSON-RPC methods.
//
// Methods:
//   - public/ticker
//   - public/get_index_price
//   - public/get_instruments
//
// Calls go through a Caller (normally *rpc.Correlator) over the shared
// WebSocket at wss://www.deribit.com/ws/api/v2. Instruments are cached
// client-side per currency/kind pair and never invalidated.
package api
