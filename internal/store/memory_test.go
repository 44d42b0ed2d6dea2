package store

import (
	"sync"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if _, ok := store.Latest(); ok {
		t.Error("Latest() ok = true on empty store, want false")
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	store.Update(CycleRecord{
		CycleID:   "c1",
		Trigger:   "startup",
		Outcome:   "forwarded",
		Streams:   intPtr(3),
		Level:     intPtr(3),
		Calls:     []string{"http://10.0.0.1/warp", "http://10.0.0.1/warp/3"},
		StartedAt: time.Now(),
	})

	got, ok := store.Latest()
	if !ok {
		t.Fatal("Latest() ok = false, want true")
	}
	if got.CycleID != "c1" {
		t.Errorf("Latest().CycleID = %q, want %q", got.CycleID, "c1")
	}
	if got.Level == nil || *got.Level != 3 {
		t.Errorf("Latest().Level = %v, want 3", got.Level)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	store.Update(CycleRecord{CycleID: "c1", Outcome: "forwarded"})
	store.Update(CycleRecord{CycleID: "c2", Outcome: "fetch_failed"})

	got, _ := store.Latest()
	if got.CycleID != "c2" {
		t.Errorf("Latest().CycleID = %q, want %q", got.CycleID, "c2")
	}
	if got.Outcome != "fetch_failed" {
		t.Errorf("Latest().Outcome = %q, want %q", got.Outcome, "fetch_failed")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(CycleRecord{CycleID: "c1"})
	}()

	select {
	case record := <-ch:
		if record.CycleID != "c1" {
			t.Errorf("received CycleID = %q, want %q", record.CycleID, "c1")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()

	go func() {
		store.Update(CycleRecord{CycleID: "c1"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 2 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/2 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)
	store.Unsubscribe(ch) // second call is a no-op

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// never read
	_ = store.Subscribe()

	done := make(chan bool)
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			store.Update(CycleRecord{CycleID: "c"})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	const numGoroutines = 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Update(CycleRecord{CycleID: "c"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = store.Latest()
			}
		}()
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
