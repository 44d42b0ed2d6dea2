package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/jpalmerr/warpcore/config"
	"github.com/spf13/cobra"
)

const defaultEnvFile = ".env"

// loadEnv loads the --env-file files into the process environment.
//
// Without the flag, ./.env is loaded when it exists. Variables already set
// in the environment win over file values.
func loadEnv(cmd *cobra.Command) error {
	files, _ := cmd.Flags().GetStringSlice("env-file")
	if len(files) == 0 {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{defaultEnvFile}
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// loadConfig loads env files and then the --config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := loadEnv(cmd); err != nil {
		return nil, err
	}

	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(configFile)
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
}
