// Package server provides the optional HTTP status surface for warpcore.
//
// It serves the latest cycle result as JSON and as a Server-Sent Events
// stream, accepts rate-limited manual cycle triggers, and exposes the
// Prometheus registry at /metrics. Routing is done with chi.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests. It is started by
// [warpcore.Relay.Start] when a status port is configured.
package server
