// Package config loads gateway configuration from environment
// variables, with an optional YAML file for the routing policy.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Gateway   GatewayConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// GatewayConfig holds request-routing configuration.
type GatewayConfig struct {
	// ReplyTimeout bounds how long a forwarded request waits for its
	// engine reply.
	ReplyTimeout time.Duration `envconfig:"GATEWAY_REPLY_TIMEOUT" default:"25s"`
	// ScriptSuffixes are the server-executable file suffixes the default
	// forward policy recognizes.
	ScriptSuffixes []string `envconfig:"GATEWAY_SCRIPT_SUFFIXES" default:".php"`
	// Upstream is the origin that serves passthrough (unscoped static)
	// traffic. Empty means passthrough rewrites in place and falls
	// through to native handling.
	Upstream string `envconfig:"GATEWAY_UPSTREAM" default:""`
	// PolicyFile optionally points at a YAML routing-policy file that
	// overrides ScriptSuffixes.
	PolicyFile string `envconfig:"GATEWAY_POLICY_FILE" default:""`
	// StaticDir is served for unscoped traffic the gateway leaves to
	// native handling.
	StaticDir string `envconfig:"GATEWAY_STATIC_DIR" default:"./static"`
	// MaxBodyMemory caps in-memory multipart parsing, in bytes.
	MaxBodyMemory int64 `envconfig:"GATEWAY_MAX_BODY_MEMORY" default:"10485760"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Policy is the YAML shape of an external routing-policy file.
type Policy struct {
	ScriptSuffixes []string `yaml:"script_suffixes"`
}

// Load loads configuration from environment variables and, when set,
// merges the routing-policy file.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Gateway.PolicyFile != "" {
		policy, err := LoadPolicy(cfg.Gateway.PolicyFile)
		if err != nil {
			return nil, err
		}
		if len(policy.ScriptSuffixes) > 0 {
			cfg.Gateway.ScriptSuffixes = policy.ScriptSuffixes
		}
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadPolicy reads a routing-policy YAML file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	return &policy, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Gateway: GatewayConfig{
			ReplyTimeout:   25 * time.Second,
			ScriptSuffixes: []string{".php"},
			StaticDir:      "./static",
			MaxBodyMemory:  10 << 20,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
