// Package server exposes deribitd's status over HTTP.
//
// Routes:
//   - GET /health: transport state, pending calls, active feeds (503 when disconnected)
//   - GET /metrics: Prometheus metrics
//   - GET /version: build information
//   - GET /debug/feeds: live feed keys per cache
package server
