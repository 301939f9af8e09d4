// Package poller keeps the price board warm while the stream is down. On an
// interval it checks the connection state and, unless the stream is open,
// fetches watched-symbol prices over REST and publishes them into the
// dispatcher as synthetic price updates.
package poller
