// Standalone mock of Tautulli and the warp core controller for testing the
// CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/warpcore run -c example/warpcore.yaml
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jpalmerr/warpcore/example/mock"
)

func main() {
	addr := flag.String("addr", ":9999", "listen address")
	streams := flag.Int("streams", 3, "initial stream count")
	flag.Parse()

	fmt.Printf("Mock Tautulli and controller starting on %s\n", *addr)
	fmt.Println("Stream count drifts every 20-60s, up to 12")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := http.ListenAndServe(*addr, mock.New(*streams, logger).Handler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
