package backoff

import (
	"errors"
	"fmt"
	"math"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
)

const (
	// DefaultMinimumDelay is used when Config.MinimumDelay is zero.
	DefaultMinimumDelay = 100

	// DefaultMaximumDelay is used when Config.MaximumDelay is zero.
	DefaultMaximumDelay = 10000

	// DefaultGrowthFactor is used when Config.GrowthFactor is zero.
	DefaultGrowthFactor = 2
)

// ErrInvalidConfig is returned by Config.Validate for negative bounds.
var ErrInvalidConfig = errors.New("backoff: invalid config")

// Config holds the bounds of a backoff sequence. All delays are in milliseconds.
//
// Zero fields mean "unset" and are replaced by their defaults when a
// Generator is created, so a zero MinimumDelay cannot be requested.
type Config struct {
	// MinimumDelay is the delay produced for the first attempt.
	MinimumDelay float64 `yaml:"minimum_delay"`

	// MaximumDelay caps every produced delay.
	MaximumDelay float64 `yaml:"maximum_delay"`

	// GrowthFactor is the per-attempt multiplier.
	GrowthFactor float64 `yaml:"growth_factor"`

	// JitterRatio is the fraction of the delay that may be randomly added or
	// subtracted. Values outside the open interval (0, 1) disable jitter.
	JitterRatio float64 `yaml:"jitter_ratio"`
}

// Validate reports negative bounds. New never calls it: negative values are
// accepted as-is there.
func (c Config) Validate() error {
	switch {
	case c.MinimumDelay < 0:
		return fmt.Errorf("%w: minimum delay %v is negative", ErrInvalidConfig, c.MinimumDelay)
	case c.MaximumDelay < 0:
		return fmt.Errorf("%w: maximum delay %v is negative", ErrInvalidConfig, c.MaximumDelay)
	case c.GrowthFactor < 0:
		return fmt.Errorf("%w: growth factor %v is negative", ErrInvalidConfig, c.GrowthFactor)
	}
	return nil
}

func (c Config) normalize() Config {
	c.MinimumDelay = orDefault(c.MinimumDelay, DefaultMinimumDelay)
	c.MaximumDelay = orDefault(c.MaximumDelay, DefaultMaximumDelay)
	c.GrowthFactor = orDefault(c.GrowthFactor, DefaultGrowthFactor)
	if !(c.JitterRatio > 0 && c.JitterRatio < 1) {
		c.JitterRatio = 0
	}
	return c
}

func orDefault(v, def float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return def
	}
	return v
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom sets the random source used for jitter.
func WithRandom(r Random) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// Generator produces an exponential sequence of retry delays.
type Generator struct {
	cfg      Config
	random   Random
	attempts int
}

var _ cbackoff.BackOff = (*Generator)(nil)

// New creates a Generator from cfg after substituting defaults for unset fields.
func New(cfg Config, opts ...Option) *Generator {
	g := &Generator{
		cfg:    cfg.normalize(),
		random: Global,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns the next delay in milliseconds and advances the attempt counter.
//
// The jitter sign and magnitude come from the same random draw: the
// deviation is floor(r*JitterRatio*raw) and it is subtracted when
// floor(r*10) is even, added otherwise.
func (g *Generator) Next() int64 {
	raw := g.cfg.MinimumDelay * math.Pow(g.cfg.GrowthFactor, float64(g.attempts))
	g.attempts++

	delay := raw
	if g.cfg.JitterRatio != 0 {
		r := g.random()
		deviation := math.Floor(r * g.cfg.JitterRatio * raw)
		if int64(math.Floor(r*10))%2 == 0 {
			delay -= deviation
		} else {
			delay += deviation
		}
	}

	// NaN only shows up once raw has overflowed to +Inf.
	if delay > g.cfg.MaximumDelay || math.IsNaN(delay) {
		delay = g.cfg.MaximumDelay
	}
	return saturate(delay)
}

// saturate truncates delay toward zero, pinning values outside the int64
// range to its bounds.
func saturate(delay float64) int64 {
	switch {
	case delay >= math.MaxInt64:
		return math.MaxInt64
	case delay <= math.MinInt64:
		return math.MinInt64
	}
	return int64(delay)
}

// maxDurationMillis is the largest millisecond count a time.Duration holds.
const maxDurationMillis = math.MaxInt64 / int64(time.Millisecond)

// NextDuration is Next expressed as a time.Duration, saturating at the
// largest representable Duration.
func (g *Generator) NextDuration() time.Duration {
	ms := g.Next()
	switch {
	case ms > maxDurationMillis:
		return time.Duration(math.MaxInt64)
	case ms < -maxDurationMillis:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ms) * time.Millisecond
}

// NextBackOff implements the cenkalti/backoff BackOff interface.
func (g *Generator) NextBackOff() time.Duration {
	return g.NextDuration()
}

// Reset restarts the sequence from the first attempt.
func (g *Generator) Reset() {
	g.attempts = 0
}

// Attempts returns the number of delays produced since creation or the last Reset.
func (g *Generator) Attempts() int {
	return g.attempts
}

// Config returns the normalized configuration.
func (g *Generator) Config() Config {
	return g.cfg
}
