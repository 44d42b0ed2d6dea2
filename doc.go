// Package warpcore mirrors media-server activity onto a warp core light.
//
// A [Relay] periodically asks a Tautulli activity API how many playback
// streams are active, maps that count to a warp level between 0 and
// [MaxLevel] with [LevelForStreams], and pushes the level to a controller
// device over plain HTTP (GET /warp, then GET /warp/{level}).
//
// # Quick Start
//
//	relay, _ := warpcore.New(
//	    warpcore.WithActivityEndpoint("https://tautulli.local", apiKey),
//	    warpcore.WithController("http://192.168.1.50"),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	relay.Start(ctx) // blocks until context is cancelled
//
// # Failure handling
//
// Each cycle stands alone. A failed fetch ([FetchError]) skips the
// controller for that cycle; a failed controller call ([ForwardError])
// skips the remaining call. Neither stops the schedule and nothing is
// retried. The controller is known to reset connections after answering;
// resets are treated as success.
//
// # Architecture
//
//   - internal/poller: shared HTTP client and the interval scheduler
//   - internal/tautulli: activity API client
//   - internal/warp: controller client
//   - internal/store: latest cycle result with pub/sub
//   - internal/server: optional status API, SSE stream and /metrics
//   - internal/metrics: Prometheus collectors
//   - config: YAML configuration for the warpcore command
package warpcore
