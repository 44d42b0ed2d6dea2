package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Trigger names what started a cycle.
const (
	TriggerStartup = "startup"
	TriggerTick    = "tick"
	TriggerManual  = "manual"
)

// Cycle is the unit of work run by the [Scheduler].
//
// cycleID is a fresh UUID for every run; trigger is one of the Trigger
// constants.
type Cycle func(ctx context.Context, cycleID, trigger string)

// Scheduler runs a [Cycle] once immediately on start and then on a fixed
// interval.
//
// At most one cycle is in flight at any time. A tick that fires while the
// previous cycle is still running is skipped, not queued. Manual runs via
// [Scheduler.Trigger] share the same guard.
//
// All lifecycle methods (Start, Stop, Trigger) are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	cycle    Cycle
	logger   *slog.Logger
	guard    *semaphore.Weighted
	onSkip   func(trigger string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - interval: Time between cycles
//   - cycle: Work to run each cycle
//   - logger: Logger for scheduler events (skips, panic recovery)
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func NewScheduler(interval time.Duration, cycle Cycle, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		interval: interval,
		cycle:    cycle,
		logger:   logger,
		guard:    semaphore.NewWeighted(1),
	}
}

// OnSkip registers a hook called whenever a cycle is skipped because another
// one is in flight. Must be called before Start.
func (s *Scheduler) OnSkip(fn func(trigger string)) {
	s.onSkip = fn
}

// Start begins the schedule in a background goroutine.
//
// Start is non-blocking. The scheduler will:
//  1. Run a cycle immediately
//  2. Run a cycle on every tick of the interval, unless one is in flight
//  3. Continue until [Scheduler.Stop] is called or the context is cancelled
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; if Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		s.dispatch(runCtx, TriggerStartup)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.dispatch(runCtx, TriggerTick)
			}
		}
	}()
}

// Trigger runs an out-of-band cycle in the background.
//
// Returns false without running anything if the scheduler is not running or
// a cycle is already in flight.
func (s *Scheduler) Trigger() bool {
	// held across dispatch so Stop cannot start waiting between the check and wg.Add
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return false
	}

	return s.dispatch(s.ctx, TriggerManual)
}

// Stop halts the scheduler and waits for the in-flight cycle to return.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// dispatch starts a cycle in its own goroutine if the guard is free.
func (s *Scheduler) dispatch(ctx context.Context, trigger string) bool {
	if ctx.Err() != nil {
		return false
	}
	if !s.guard.TryAcquire(1) {
		s.logger.Warn("cycle still in flight, skipping", "trigger", trigger)
		if s.onSkip != nil {
			s.onSkip(trigger)
		}
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.guard.Release(1)
		s.safeRun(ctx, uuid.NewString(), trigger)
	}()
	return true
}

// safeRun calls the cycle with panic recovery.
// A panic is logged with the full stack trace and a correlation ID; the
// schedule keeps running.
func (s *Scheduler) safeRun(ctx context.Context, cycleID, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panic",
				"correlation_id", cycleID,
				"trigger", trigger,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	s.cycle(ctx, cycleID, trigger)
}
