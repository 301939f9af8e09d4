// Package dispatch fans classified messages out to subscribers and keeps the
// single-slot latest-message cache.
//
// Every active subscriber receives every published message exactly once, in
// publish order. A subscriber that stops draining its buffer loses messages
// (counted, logged) rather than stalling the stream for everyone else.
package dispatch
