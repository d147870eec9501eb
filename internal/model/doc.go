// Package model defines shared data types used across the Deribit data client.
//
// Conventions:
//   - Market prices and rates: float64, fed straight into the option analytics
//   - Static contract terms (strike, tick size, commissions): decimal.Decimal
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: instrument names as strings (e.g., "BTC-27DEC24-60000-P")
package model
