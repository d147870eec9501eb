package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only JSON-RPC protocol version spoken.
const Version = "2.0"

// Errors
var (
	ErrDecode = errors.New("decode response")
	ErrClosed = errors.New("correlator closed")
)

// Request is an outbound JSON-RPC call.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is an inbound reply. Deribit adds server timing fields in
// microseconds next to the standard envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
	UsIn    int64           `json:"usIn"`
	UsOut   int64           `json:"usOut"`
	UsDiff  int64           `json:"usDiff"`
	Testnet bool            `json:"testnet"`
}

// Error is a JSON-RPC error object returned by the server.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// envelope is the minimal shape the dispatch loop parses.
type envelope struct {
	ID     *int64 `json:"id"`
	Method string `json:"method"`
}
