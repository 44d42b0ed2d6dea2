package config

import (
	"github.com/jpalmerr/warpcore"
)

// BuildOptions converts a parsed configuration into relay options.
//
// The logger is not part of the result; the caller builds it with
// [LogConfig.NewLogger] and adds [warpcore.WithLogger] itself.
func BuildOptions(cfg *Config) []warpcore.Option {
	opts := []warpcore.Option{
		warpcore.WithActivityEndpoint(cfg.Activity.BaseURL(), cfg.Activity.APIKey),
		warpcore.WithController(cfg.Controller.BaseURL()),
		warpcore.WithPollInterval(cfg.PollInterval.Duration()),
	}

	if cfg.Activity.Timeout > 0 {
		opts = append(opts, warpcore.WithActivityTimeout(cfg.Activity.Timeout.Duration()))
	}
	if cfg.Controller.Timeout > 0 {
		opts = append(opts, warpcore.WithControllerTimeout(cfg.Controller.Timeout.Duration()))
	}

	if cfg.Status.Port > 0 {
		opts = append(opts, warpcore.WithStatusPort(cfg.Status.Port))
	}

	return opts
}
