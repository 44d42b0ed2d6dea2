package store

import "time"

// CycleRecord is the stored form of one finished cycle, shaped for JSON
// (used by the status API and SSE).
type CycleRecord struct {
	// CycleID is the UUID assigned by the scheduler.
	CycleID string `json:"cycle_id"`

	// Trigger is what started the cycle ("startup", "tick", "manual").
	Trigger string `json:"trigger"`

	// Outcome is "forwarded", "fetch_failed", or "forward_failed".
	Outcome string `json:"outcome"`

	// Streams is the fetched stream count; nil if the fetch failed.
	Streams *int `json:"streams"`

	// Level is the warp level sent; nil if the fetch failed.
	Level *int `json:"level"`

	// Calls lists the controller URLs that completed.
	Calls []string `json:"calls"`

	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`

	// Error contains the error message if the cycle failed.
	Error *string `json:"error"`
}

// Store holds the most recent cycle and fans updates out to subscribers.
//
// Implementations must be safe for concurrent access.
type Store interface {
	// Update replaces the latest record and notifies all subscribers.
	Update(record CycleRecord)

	// Latest returns the most recent record, or false before the first cycle.
	Latest() (CycleRecord, bool)

	// Subscribe returns a channel that receives every subsequent update.
	// The channel is buffered; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan CycleRecord

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan CycleRecord)
}
