package warpcore

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// relayConfig holds mutable state during Relay construction.
type relayConfig struct {
	activityURL       string
	apiKey            string
	controllerURL     string
	pollInterval      time.Duration
	activityTimeout   time.Duration
	controllerTimeout time.Duration
	transport         http.RoundTripper
	logger            *slog.Logger
	callbacks         []func(CycleResult)
	statusPort        int
	registry          *prometheus.Registry
}

// Option is a function that configures a [Relay] during construction.
//
// Options return an error if validation fails. [WithActivityEndpoint] and
// [WithController] are required; everything else has a default.
type Option func(*relayConfig) error

// WithActivityEndpoint sets the activity API base URL and its API key.
//
// baseURL is scheme and host only, e.g. "https://tautulli.local:8181".
// The get_activity path and query are added by the relay.
//
// Example:
//
//	relay, err := warpcore.New(
//	    warpcore.WithActivityEndpoint("https://tautulli.local", os.Getenv("TAUTULLI_API_KEY")),
//	    warpcore.WithController("http://192.168.1.50"),
//	)
func WithActivityEndpoint(baseURL, apiKey string) Option {
	return func(cfg *relayConfig) error {
		if err := validateBaseURL(baseURL); err != nil {
			return fmt.Errorf("activity endpoint: %w", err)
		}
		if strings.TrimSpace(apiKey) == "" {
			return errors.New("activity endpoint: api key cannot be empty")
		}
		cfg.activityURL = baseURL
		cfg.apiKey = apiKey
		return nil
	}
}

// WithController sets the controller base URL, e.g. "http://192.168.1.50".
func WithController(baseURL string) Option {
	return func(cfg *relayConfig) error {
		if err := validateBaseURL(baseURL); err != nil {
			return fmt.Errorf("controller: %w", err)
		}
		cfg.controllerURL = baseURL
		return nil
	}
}

// WithPollInterval sets the time between cycles. Defaults to 5 minutes.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *relayConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithRequestTimeout bounds every outbound request. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *relayConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.activityTimeout = d
		cfg.controllerTimeout = d
		return nil
	}
}

// WithActivityTimeout bounds activity API requests only, overriding
// [WithRequestTimeout] if applied after it.
func WithActivityTimeout(d time.Duration) Option {
	return func(cfg *relayConfig) error {
		if d <= 0 {
			return errors.New("activity timeout must be positive")
		}
		cfg.activityTimeout = d
		return nil
	}
}

// WithControllerTimeout bounds controller requests only, overriding
// [WithRequestTimeout] if applied after it.
func WithControllerTimeout(d time.Duration) Option {
	return func(cfg *relayConfig) error {
		if d <= 0 {
			return errors.New("controller timeout must be positive")
		}
		cfg.controllerTimeout = d
		return nil
	}
}

// WithTransport replaces the HTTP transport used for both the activity API
// and the controller. Mostly useful in tests.
//
// Returns an error if rt is nil.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *relayConfig) error {
		if rt == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = rt
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *relayConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithCycleCallback registers a function called after every cycle, in
// registration order.
//
// Callbacks run on the cycle's goroutine and hold up the next cycle until
// they return, so they should be quick. Panics are recovered and logged.
//
// Nil callbacks are silently ignored.
func WithCycleCallback(cb func(CycleResult)) Option {
	return func(cfg *relayConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithStatusPort enables the HTTP status server on port. 0, the default,
// disables it.
//
// Returns an error if the port is outside 0-65535.
func WithStatusPort(port int) Option {
	return func(cfg *relayConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("status port must be between 0 and 65535, got %d", port)
		}
		cfg.statusPort = port
		return nil
	}
}

// WithMetricsRegistry registers the relay's collectors on reg and serves reg
// at /metrics. Without it the relay uses a private registry.
//
// A registry serves one relay; [New] fails if the collectors are already
// registered on reg.
//
// Returns an error if reg is nil.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *relayConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must have a host")
	}
	return nil
}
