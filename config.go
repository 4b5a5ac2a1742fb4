package rebound

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hedeqiang/rebound/backoff"
	"github.com/hedeqiang/rebound/policy"
)

// DefaultPolicy is the name of the policy registered by DefaultConfig.
const DefaultPolicy = "default"

// EnvLogLevel overrides Config.LogLevel in LoadConfig.
const EnvLogLevel = "REBOUND_LOG_LEVEL"

// Config holds the global configuration for a Rebound instance.
type Config struct {
	// LogLevel controls log verbosity ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`

	// MaxConcurrent caps operations started with Go. Zero means no cap.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Breaker enables a shared circuit breaker when Threshold is positive.
	Breaker BreakerConfig `yaml:"breaker"`

	// Policies are registered when the instance is created.
	Policies []policy.Policy `yaml:"policies"`
}

// BreakerConfig configures the shared circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int `yaml:"threshold"`

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Breaker: BreakerConfig{
			ResetTimeout: 30 * time.Second,
		},
		Policies: []policy.Policy{
			{
				Name:        DefaultPolicy,
				MaxAttempts: 3,
				Backoff: backoff.Config{
					MinimumDelay: backoff.DefaultMinimumDelay,
					MaximumDelay: backoff.DefaultMaximumDelay,
					GrowthFactor: backoff.DefaultGrowthFactor,
				},
			},
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("%w: max_concurrent must not be negative", ErrInvalidConfig)
	}
	if c.Breaker.Threshold < 0 {
		return fmt.Errorf("%w: breaker threshold must not be negative", ErrInvalidConfig)
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.Policies))
	for _, p := range c.Policies {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: policy %q declared twice", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig.
// A missing file yields the defaults. The REBOUND_LOG_LEVEL environment
// variable overrides log_level.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("rebound: read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("rebound: parse config file %s: %w", path, err)
		}
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("rebound: log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
