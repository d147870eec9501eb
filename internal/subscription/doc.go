// Package subscription turns one-shot fetches into shared live feeds.
//
// A Cache keys every feed by a string. The first Observe of a key with a
// positive interval starts one fetch cycle: fetch immediately, then once
// per interval, never overlapping. Later observers of the same key join
// that cycle, receive the latest completed update first and then every
// update after it. The fetch function of a joining observer is not used.
//
// With a non-positive interval Observe fetches once, delivers a single
// update and closes the feed. Concurrent one-shot observers of the same
// key share that fetch.
//
// Feeds are reference counted: when the last subscriber of a periodic key
// closes its Feed, the cycle is cancelled and the key forgotten.
package subscription
