// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over file values.
const (
	EnvControlToken = "PLAYSYNC_CONTROL_TOKEN"
	EnvNATSURL      = "PLAYSYNC_NATS_URL"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig            `yaml:"server"`
	Log          LogConfig               `yaml:"log"`
	Control      ControlConfig           `yaml:"control"`
	Player       PlayerConfig            `yaml:"player"`
	Notification NotificationConfig      `yaml:"notification"`
	Relays       []RelayConfig           `yaml:"relays" validate:"dive"`
	Filters      map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LogConfig is the file-side default for the logger; command line flags win.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// ControlConfig guards the command RPCs. An empty token leaves them open.
type ControlConfig struct {
	Token string `yaml:"token"`
}

// PlayerConfig represents the playback service configuration.
type PlayerConfig struct {
	PrepareDelayMs     *int `yaml:"prepare_delay_ms" default:"300" validate:"required,gte=0,lte=10000"`
	DefaultDurationSec int  `yaml:"default_duration_sec" default:"180" validate:"gte=1"`
	CommandBuffer      int  `yaml:"command_buffer" default:"16" validate:"gte=1"`
}

// PrepareDelay returns the prepare delay as a duration.
// prepare_delay_ms is a pointer so an explicit 0 survives defaults.
func (p PlayerConfig) PrepareDelay() time.Duration {
	if p.PrepareDelayMs == nil {
		return 0
	}
	return time.Duration(*p.PrepareDelayMs) * time.Millisecond
}

// DefaultDuration returns the fallback track duration.
func (p PlayerConfig) DefaultDuration() time.Duration {
	return time.Duration(p.DefaultDurationSec) * time.Second
}

// NotificationConfig represents notification channel configuration.
type NotificationConfig struct {
	HistorySize int `yaml:"history_size" default:"32" validate:"gte=0,lte=4096"`
}

// RelayConfig represents a single notification relay.
type RelayConfig struct {
	Type     string         `yaml:"type" validate:"required,oneof=log nats"`
	Name     string         `yaml:"name"`
	Settings map[string]any `yaml:"settings"`
}

// FilterConfig represents a start filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and no relays.
func Default() *Config {
	var cfg Config
	_ = defaults.Set(&cfg)
	cfg.overrideFromEnv()
	return &cfg
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv(EnvControlToken); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		for i := range c.Relays {
			if c.Relays[i].Type != "nats" {
				continue
			}
			if c.Relays[i].Settings == nil {
				c.Relays[i].Settings = map[string]any{}
			}
			c.Relays[i].Settings["url"] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Log.Output == "file" && c.Log.File == "" {
		return errors.New("log.file is required when log.output is file")
	}

	return nil
}

// ControlEnabled reports whether command RPCs require a token.
func (c *Config) ControlEnabled() bool {
	return c.Control.Token != ""
}
