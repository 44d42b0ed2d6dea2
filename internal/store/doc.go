// Package store keeps the most recent cycle result in memory and publishes
// every new one to subscribers.
//
// Nothing is persisted and no history is kept; each update replaces the
// previous record.
package store
