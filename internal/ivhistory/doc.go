// Package ivhistory fetches at-the-money implied volatility history from
// the Greeks.live REST API.
//
// Endpoint:
//   - POST https://api.greeks.live/api/v1/iv_history  {"currency": "BTC"}
//
// Each call is a single unauthenticated request; there is no retry.
package ivhistory
