// Package api provides a typed client for the dashboard backend's REST
// surface: spot prices, bot configurations, and bot runtime status.
//
// The realtime stream does not depend on this package beyond the session
// provider; REST is used for initial render and as a fallback while the
// stream is down.
package api
