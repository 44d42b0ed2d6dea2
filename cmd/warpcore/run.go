package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/warpcore"
	"github.com/jpalmerr/warpcore/config"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll activity and forward warp levels",
	Long: `Poll the activity API and forward the warp level to the controller.

The first cycle runs immediately, then once every poll_interval. When
status.port is set, an HTTP status server exposes /healthz, /metrics,
/api/status, /api/sse and POST /api/cycle.

Runs until interrupted (Ctrl+C) or SIGTERM.

Example:
  warpcore run -c warpcore.yaml
  warpcore run -c /etc/warpcore/warpcore.yaml --env-file /etc/warpcore/secrets.env`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addConfigFlag(runCmd)
}

// newRelay builds a relay and its stdout logger from cfg.
func newRelay(cfg *config.Config) (*warpcore.Relay, *slog.Logger, error) {
	logger := cfg.Log.NewLogger(os.Stdout)

	opts := append(config.BuildOptions(cfg), warpcore.WithLogger(logger))
	relay, err := warpcore.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create relay: %w", err)
	}
	return relay, logger, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	relay, logger, err := newRelay(cfg)
	if err != nil {
		return err
	}

	logger.Info("config loaded",
		"activity", cfg.Activity.BaseURL(),
		"controller", cfg.Controller.BaseURL(),
		"poll_interval", cfg.PollInterval.Duration().String(),
		"status_port", cfg.Status.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start blocks until ctx is cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- relay.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("relay error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("relay error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
