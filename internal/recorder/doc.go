// Package recorder implements the feed recorder.
//
// The recorder:
//   - Observes configured instruments and indices through subscription caches
//   - Logs every update, including fetch failures
//   - Hands successful tickers to a handler, typically the snapshot writer
//
// Feeds are shared with any other observer of the same key, so the
// status server or a CLI can join a recorded feed without extra fetches.
package recorder
