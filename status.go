package warpcore

import "time"

// Outcome is how a cycle ended.
type Outcome string

const (
	// OutcomeForwarded means the level reached the controller. Calls that
	// ended in a connection reset still count.
	OutcomeForwarded Outcome = "forwarded"

	// OutcomeFetchFailed means the stream count could not be read and the
	// controller was not called.
	OutcomeFetchFailed Outcome = "fetch_failed"

	// OutcomeForwardFailed means a controller call failed.
	OutcomeForwardFailed Outcome = "forward_failed"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// ControllerCall is one completed request to the controller.
type ControllerCall struct {
	URL string

	// StatusCode is informational only; controller statuses never fail a
	// cycle. Zero when the connection was reset.
	StatusCode int

	Latency time.Duration

	// Reset is true when the controller reset the connection.
	Reset bool
}

// CycleResult holds the outcome of one fetch-and-forward cycle.
//
// CycleResult is a value; callbacks receive their own copy of Calls.
type CycleResult struct {
	// CycleID is a UUID unique to this cycle. It also appears in every log
	// line the cycle writes.
	CycleID string

	// Trigger is what started the cycle: "startup", "tick", "manual" or "once".
	Trigger string

	StartedAt time.Time
	Duration  time.Duration

	Outcome Outcome

	// Streams and Level are zero when the fetch failed.
	Streams int
	Level   int

	// Calls lists the controller requests that completed, in order.
	Calls []ControllerCall

	// Err is a [*FetchError] or [*ForwardError], or nil when forwarded.
	Err error
}
