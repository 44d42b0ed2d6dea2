// Package main is the entry point for the warpcore CLI.
//
// Usage:
//
//	warpcore run -c warpcore.yaml       # Poll and forward until interrupted
//	warpcore once -c warpcore.yaml      # Run a single cycle and exit
//	warpcore validate -c warpcore.yaml  # Validate configuration
//	warpcore version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd only shows help; the work happens in subcommands.
var rootCmd = &cobra.Command{
	Use:   "warpcore",
	Short: "Drive a warp core light from Plex activity",
	Long: `warpcore polls the Tautulli activity API for the number of active
streams, maps it to a warp level between 0 and 9, and sends that level to
the warp core controller.

Quick start:
  1. Create a config file (warpcore.yaml)
  2. Put secrets in .env, e.g. TAUTULLI_API_KEY=...
  3. Run: warpcore run -c warpcore.yaml

Example config:
  activity:
    host: tautulli.local:8181
    api_key: ${TAUTULLI_API_KEY}
  controller:
    host: 192.168.1.50
  poll_interval: 5m`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this warpcore binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "warpcore %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("env-file", nil, "dotenv file(s) to load before reading the config (default .env if present)")
	rootCmd.AddCommand(versionCmd)
}
