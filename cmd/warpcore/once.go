package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single fetch-and-forward cycle",
	Long: `Run one cycle and exit. Useful from cron or to check connectivity.

Exit codes:
  0 - level forwarded
  1 - fetch or forward failed (details logged and printed to stderr)

Example:
  warpcore once -c warpcore.yaml`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
	addConfigFlag(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	relay, _, err := newRelay(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := relay.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Streams: %d\n", result.Streams)
	fmt.Fprintf(out, "Level:   %d\n", result.Level)
	for _, call := range result.Calls {
		status := fmt.Sprintf("%d", call.StatusCode)
		if call.Reset {
			status = "reset"
		}
		fmt.Fprintf(out, "  GET %s -> %s (%s)\n", call.URL, status, call.Latency.Round(time.Millisecond))
	}
	return nil
}
