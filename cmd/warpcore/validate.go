package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without contacting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a warpcore configuration file without polling.

This command loads env files, parses the YAML, expands environment
variables, and validates all fields. The API key is never printed.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  warpcore validate -c warpcore.yaml
  warpcore validate -c warpcore.yaml --env-file secrets.env`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addConfigFlag(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	statusPort := "disabled"
	if cfg.Status.Port > 0 {
		statusPort = fmt.Sprintf("%d", cfg.Status.Port)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Activity:      %s\n", cfg.Activity.BaseURL())
	fmt.Printf("  Controller:    %s\n", cfg.Controller.BaseURL())
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Status port:   %s\n", statusPort)

	return nil
}
