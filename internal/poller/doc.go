// Package poller provides the HTTP client and the cycle scheduler used by
// warpcore.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeouts and size limits
//   - [Scheduler]: Runs one cycle at start, then on a fixed interval, never
//     more than one at a time
//
// Users of the warpcore library should not need to interact with this
// package directly.
package poller
