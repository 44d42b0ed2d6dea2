package store

import (
	"sync"
)

const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// Only the latest record is kept. Subscribers receive updates via buffered
// channels; if a subscriber's buffer is full the update is dropped for that
// subscriber so Update never blocks.
type MemoryStore struct {
	mu     sync.RWMutex
	latest CycleRecord
	has    bool

	subscribers map[chan CycleRecord]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan CycleRecord]struct{}),
	}
}

// Update stores record as the latest and notifies all subscribers.
func (m *MemoryStore) Update(record CycleRecord) {
	m.mu.Lock()
	m.latest = record
	m.has = true
	m.mu.Unlock()

	m.notifySubscribers(record)
}

// Latest returns the most recent record.
func (m *MemoryStore) Latest() (CycleRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.has
}

// Subscribe creates a new subscription.
//
// Caller must call [MemoryStore.Unsubscribe] when done.
func (m *MemoryStore) Subscribe() <-chan CycleRecord {
	ch := make(chan CycleRecord, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan CycleRecord) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the record to all subscribers without blocking.
func (m *MemoryStore) notifySubscribers(record CycleRecord) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- record:
		default:
			// subscriber is slow, drop the message
		}
	}
}
