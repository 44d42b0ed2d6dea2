// Package config provides YAML configuration parsing for the warpcore command.
//
// Example configuration:
//
//	activity:
//	  host: tautulli.local:8181
//	  api_key: ${TAUTULLI_API_KEY}
//
//	controller:
//	  host: 192.168.1.50
//
//	poll_interval: 5m
//
//	status:
//	  port: 9090
//
//	log:
//	  level: info
//	  format: json
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// minPollInterval keeps a typo from hammering the activity API.
	minPollInterval = 1 * time.Second

	minTimeout = 1 * time.Second

	defaultPollInterval     = 5 * time.Minute
	defaultActivityScheme   = "https"
	defaultControllerScheme = "http"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
)

// Config is the root configuration structure.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	Activity   ActivityConfig   `yaml:"activity"`
	Controller ControllerConfig `yaml:"controller"`

	// PollInterval is the time between cycles. Defaults to 5m.
	PollInterval Duration `yaml:"poll_interval"`

	Status StatusConfig `yaml:"status"`
	Log    LogConfig    `yaml:"log"`
}

// ActivityConfig locates the Tautulli activity API.
type ActivityConfig struct {
	// Host is host or host:port, without scheme or path.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Host string `yaml:"host"`

	// Scheme is http or https. Defaults to https.
	Scheme string `yaml:"scheme"`

	// APIKey is sent as the apikey query parameter.
	// Supports environment variable substitution.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each request. Defaults to the relay default (10s).
	Timeout Duration `yaml:"timeout"`
}

// BaseURL returns scheme://host.
func (a ActivityConfig) BaseURL() string {
	return a.Scheme + "://" + a.Host
}

// ControllerConfig locates the warp core controller.
type ControllerConfig struct {
	// Host is host or host:port, without scheme or path.
	// Supports environment variable substitution.
	Host string `yaml:"host"`

	// Scheme is http or https. Defaults to http.
	Scheme string `yaml:"scheme"`

	// Timeout bounds each request. Defaults to the relay default (10s).
	Timeout Duration `yaml:"timeout"`
}

// BaseURL returns scheme://host.
func (c ControllerConfig) BaseURL() string {
	return c.Scheme + "://" + c.Host
}

// StatusConfig controls the optional HTTP status server.
type StatusConfig struct {
	// Port is the listen port. 0 disables the server.
	Port int `yaml:"port"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is text or json. Defaults to text.
	Format string `yaml:"format"`
}

// NewLogger builds a logger writing to w in the configured format and level.
//
// The config must have been validated; unknown values fall back to the
// defaults.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in host and api_key fields, defaults
// are applied, and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Activity.Scheme == "" {
		c.Activity.Scheme = defaultActivityScheme
	}
	if c.Controller.Scheme == "" {
		c.Controller.Scheme = defaultControllerScheme
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(defaultPollInterval)
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	var err error

	if c.Activity.Host, err = expandRequired("activity.host", c.Activity.Host); err != nil {
		return err
	}
	if c.Activity.APIKey, err = expandRequired("activity.api_key", c.Activity.APIKey); err != nil {
		return err
	}
	if c.Controller.Host, err = expandRequired("controller.host", c.Controller.Host); err != nil {
		return err
	}

	if err := validateHost("activity.host", c.Activity.Host); err != nil {
		return err
	}
	if err := validateHost("controller.host", c.Controller.Host); err != nil {
		return err
	}
	if err := validateScheme("activity.scheme", c.Activity.Scheme); err != nil {
		return err
	}
	if err := validateScheme("controller.scheme", c.Controller.Scheme); err != nil {
		return err
	}

	if c.PollInterval.Duration() < minPollInterval {
		return fmt.Errorf("poll_interval must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if err := validateTimeout("activity.timeout", c.Activity.Timeout); err != nil {
		return err
	}
	if err := validateTimeout("controller.timeout", c.Controller.Timeout); err != nil {
		return err
	}

	if c.Status.Port < 0 || c.Status.Port > 65535 {
		return fmt.Errorf("status.port must be between 0 and 65535, got %d", c.Status.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func expandRequired(field, value string) (string, error) {
	expanded, err := expandEnvVars(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	return expanded, nil
}

func validateHost(field, host string) error {
	if strings.Contains(host, "://") {
		return fmt.Errorf("%s must not include a scheme, got %q", field, host)
	}
	if strings.ContainsAny(host, "/?# ") {
		return fmt.Errorf("%s must be a host or host:port, got %q", field, host)
	}
	return nil
}

func validateScheme(field, scheme string) error {
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%s must be http or https, got %q", field, scheme)
	}
	return nil
}

func validateTimeout(field string, d Duration) error {
	if d == 0 {
		return nil
	}
	if d.Duration() < 0 {
		return fmt.Errorf("%s cannot be negative, got %s", field, d.Duration())
	}
	if d.Duration() < minTimeout {
		return fmt.Errorf("%s must be at least 1s if specified, got %s", field, d.Duration())
	}
	return nil
}
