// Command example runs warpcore against an in-process mock of Tautulli and
// the warp core controller.
//
// Usage:
//
//	go run ./example
//
// Then open http://localhost:8080/api/status, or trigger a cycle with:
//
//	curl -X POST http://localhost:8080/api/cycle
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/warpcore"
	"github.com/jpalmerr/warpcore/example/mock"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// mock serves both the activity API and the controller
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logger.Error("failed to start mock", "error", err)
		os.Exit(1)
	}
	mockURL := "http://" + ln.Addr().String()
	go func() {
		_ = http.Serve(ln, mock.New(3, logger.With("component", "mock")).Handler())
	}()

	relay, err := warpcore.New(
		warpcore.WithActivityEndpoint(mockURL, "demo-key"),
		warpcore.WithController(mockURL),
		warpcore.WithPollInterval(15*time.Second),
		warpcore.WithStatusPort(8080),
		warpcore.WithLogger(logger),
		warpcore.WithCycleCallback(func(r warpcore.CycleResult) {
			fmt.Printf("cycle %s: %s streams=%d level=%d (%s)\n",
				r.Trigger, r.Outcome, r.Streams, r.Level, r.Duration.Round(time.Millisecond))
		}),
	)
	if err != nil {
		logger.Error("failed to create relay", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  warpcore demo")
	fmt.Printf("  mock Tautulli and controller at %s\n", mockURL)
	fmt.Println("  status at http://localhost:8080/api/status")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Start(ctx); err != nil {
		logger.Error("relay error", "error", err)
		os.Exit(1)
	}
}
