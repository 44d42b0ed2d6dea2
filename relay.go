package warpcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/warpcore/internal/metrics"
	"github.com/jpalmerr/warpcore/internal/poller"
	"github.com/jpalmerr/warpcore/internal/server"
	"github.com/jpalmerr/warpcore/internal/store"
	"github.com/jpalmerr/warpcore/internal/tautulli"
	"github.com/jpalmerr/warpcore/internal/warp"
)

const (
	defaultPollInterval   = 5 * time.Minute
	defaultRequestTimeout = 10 * time.Second

	// triggerOnce marks cycles started by RunOnce.
	triggerOnce = "once"
)

// Relay polls the activity API for the active stream count and forwards the
// matching warp level to the controller.
//
// A Relay is created using [New] and run with [Relay.Start], or a single
// cycle can be run with [Relay.RunOnce]:
//
//	relay, err := warpcore.New(
//	    warpcore.WithActivityEndpoint("https://tautulli.local", apiKey),
//	    warpcore.WithController("http://192.168.1.50"),
//	)
//	if err != nil {
//	    slog.Error("failed to create relay", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	relay.Start(ctx) // blocks until context cancelled
//
// Each cycle reads the count and passes it straight to the forwarder; no
// count or level is shared between cycles.
type Relay struct {
	activity     *tautulli.Client
	activityHost string
	controller   *warp.Controller
	httpClient   *poller.Client

	pollInterval time.Duration
	statusPort   int
	logger       *slog.Logger
	callbacks    []func(CycleResult)

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	store    *store.MemoryStore
}

// New creates a new [Relay] with the given options.
//
// [WithActivityEndpoint] and [WithController] are required. Defaults:
//   - Poll interval: 5 minutes
//   - Request timeout: 10 seconds
//   - Status server: disabled
//
// Returns an error if a required option is missing or any option is invalid.
func New(opts ...Option) (*Relay, error) {
	cfg := &relayConfig{
		pollInterval:      defaultPollInterval,
		activityTimeout:   defaultRequestTimeout,
		controllerTimeout: defaultRequestTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.activityURL == "" {
		return nil, errors.New("activity endpoint is required")
	}
	if cfg.controllerURL == "" {
		return nil, errors.New("controller is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}

	httpClient := poller.NewClientWithTransport(cfg.transport)

	activityHost := cfg.activityURL
	if u, err := url.Parse(cfg.activityURL); err == nil {
		activityHost = u.Host
	}

	return &Relay{
		activity:     tautulli.NewClient(cfg.activityURL, cfg.apiKey, cfg.activityTimeout, httpClient),
		activityHost: activityHost,
		controller:   warp.NewController(cfg.controllerURL, cfg.controllerTimeout, httpClient),
		httpClient:   httpClient,
		pollInterval: cfg.pollInterval,
		statusPort:   cfg.statusPort,
		logger:       logger,
		callbacks:    cfg.callbacks,
		metrics:      m,
		gatherer:     registry,
		store:        store.NewMemoryStore(),
	}, nil
}

// Start runs a cycle immediately and then every poll interval until ctx is
// cancelled. If a status port is configured the status server runs alongside.
//
// Start blocks. Returns nil on graceful shutdown, or an error if the status
// server cannot bind its port.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("warpcore starting",
		"activity_host", r.activityHost,
		"controller", r.controller.WarpURL(),
		"interval", r.pollInterval.String(),
	)

	if ctx.Err() != nil {
		return nil
	}

	scheduler := poller.NewScheduler(r.pollInterval, r.runCycle, r.logger)
	scheduler.OnSkip(func(trigger string) {
		r.metrics.CyclesSkipped.WithLabelValues(trigger).Inc()
	})

	if r.statusPort > 0 {
		statusServer := server.NewServer(r.store, r.statusPort, scheduler.Trigger, r.gatherer, r.logger)
		if err := statusServer.Start(ctx); err != nil {
			r.httpClient.Close()
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	scheduler.Start(ctx)

	<-ctx.Done()
	scheduler.Stop()
	r.httpClient.Close()
	r.logger.Info("warpcore stopped")
	return nil
}

// RunOnce runs a single cycle synchronously and returns its result.
//
// The returned error is the cycle's [*FetchError] or [*ForwardError], if any.
func (r *Relay) RunOnce(ctx context.Context) (CycleResult, error) {
	result := r.cycle(ctx, uuid.NewString(), triggerOnce)
	return result, result.Err
}

// PollInterval returns the configured interval between cycles.
func (r *Relay) PollInterval() time.Duration {
	return r.pollInterval
}

// StatusPort returns the status server port, 0 when disabled.
func (r *Relay) StatusPort() int {
	return r.statusPort
}

// runCycle adapts cycle to the scheduler.
func (r *Relay) runCycle(ctx context.Context, cycleID, trigger string) {
	r.cycle(ctx, cycleID, trigger)
}

// cycle fetches the stream count and forwards the derived level.
func (r *Relay) cycle(ctx context.Context, cycleID, trigger string) CycleResult {
	log := r.logger.With("cycle_id", cycleID)
	result := CycleResult{
		CycleID:   cycleID,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	streams, err := r.activity.StreamCount(ctx)
	if err != nil {
		result.Outcome = OutcomeFetchFailed
		result.Err = &FetchError{Err: err}
		log.Error("activity fetch failed", "host", r.activityHost, "error", err)
		return r.finish(result)
	}
	log.Info("activity fetched", "streams", streams)
	r.metrics.StreamCount.Set(float64(streams))

	level := LevelForStreams(streams)
	result.Streams = streams
	result.Level = level

	calls, err := r.controller.SetLevel(ctx, level, warp.Hooks{
		BeforeLevel: func(url string) {
			log.Info("setting warp level", "streams", streams, "level", level)
			log.Info("calling controller", "url", url)
		},
		OnReset: func(call warp.Call) {
			r.metrics.ControllerResets.Inc()
			log.Debug("controller reset connection", "url", call.URL)
		},
	})
	result.Calls = toControllerCalls(calls)

	if err != nil {
		fwdErr := &ForwardError{Err: err}
		var callErr *warp.CallError
		if errors.As(err, &callErr) {
			fwdErr.URL = callErr.URL
			fwdErr.Err = callErr.Err
		}
		result.Outcome = OutcomeForwardFailed
		result.Err = fwdErr
		log.Error("controller call failed", "url", fwdErr.URL, "error", fwdErr.Err)
		return r.finish(result)
	}

	r.metrics.WarpLevel.Set(float64(level))
	result.Outcome = OutcomeForwarded
	log.Info("warp level forwarded", "level", level, "calls", len(result.Calls))
	if trigger != triggerOnce {
		log.Info("waiting for next cycle", "in", r.pollInterval.String())
	}
	return r.finish(result)
}

// finish records the result in metrics and the store, then runs callbacks.
func (r *Relay) finish(result CycleResult) CycleResult {
	result.Duration = time.Since(result.StartedAt)

	r.metrics.ObserveCycle(result.Outcome.String(), result.Duration)
	r.store.Update(toRecord(result))

	for _, cb := range r.callbacks {
		invokeCallbackSafe(cb, copyResult(result), r.logger)
	}
	return result
}

func toControllerCalls(calls []warp.Call) []ControllerCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ControllerCall, len(calls))
	for i, c := range calls {
		out[i] = ControllerCall{
			URL:        c.URL,
			StatusCode: c.StatusCode,
			Latency:    c.Latency,
			Reset:      c.Reset,
		}
	}
	return out
}

// toRecord converts a result to its stored JSON form.
func toRecord(result CycleResult) store.CycleRecord {
	record := store.CycleRecord{
		CycleID:    result.CycleID,
		Trigger:    result.Trigger,
		Outcome:    result.Outcome.String(),
		StartedAt:  result.StartedAt,
		DurationMs: result.Duration.Milliseconds(),
		Calls:      make([]string, 0, len(result.Calls)),
	}

	if result.Outcome != OutcomeFetchFailed {
		streams, level := result.Streams, result.Level
		record.Streams = &streams
		record.Level = &level
	}
	for _, c := range result.Calls {
		record.Calls = append(record.Calls, c.URL)
	}
	if result.Err != nil {
		s := result.Err.Error()
		record.Error = &s
	}
	return record
}

// copyResult returns a copy whose Calls slice is not shared.
func copyResult(result CycleResult) CycleResult {
	if result.Calls != nil {
		result.Calls = append([]ControllerCall(nil), result.Calls...)
	}
	return result
}

// invokeCallbackSafe calls a cycle callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CycleResult), result CycleResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle callback panicked",
				"panic", r,
				"cycle_id", result.CycleID,
			)
		}
	}()
	cb(result)
}
