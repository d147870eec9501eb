// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - RPC request outcomes, latency and in-flight calls
//   - Correlation misses (replies nobody was waiting for)
//   - Subscription feed fetches, active feeds and dropped updates
//   - Writer batch sizes and flush latency
//
// Collectors register on the default registry at init and are served by
// Handler.
package metrics
