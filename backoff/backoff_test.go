package backoff

import (
	"math"
	"testing"
	"time"

	cbackoff "github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(g *Generator, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

func TestGenerator_NoJitterSequence(t *testing.T) {
	t.Parallel()

	g := New(Config{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2})

	assert.Equal(t,
		[]int64{100, 200, 400, 800, 1600, 3200, 6400, 10000, 10000},
		collect(g, 9),
	)
}

func TestGenerator_Growth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want []int64
	}{
		{
			name: "fractional factor truncates",
			cfg:  Config{MinimumDelay: 10, MaximumDelay: 1000, GrowthFactor: 1.5},
			want: []int64{10, 15, 22, 33, 50, 75},
		},
		{
			name: "factor of one is constant",
			cfg:  Config{MinimumDelay: 250, MaximumDelay: 1000, GrowthFactor: 1},
			want: []int64{250, 250, 250, 250},
		},
		{
			name: "minimum above maximum is clamped from the start",
			cfg:  Config{MinimumDelay: 5000, MaximumDelay: 1000, GrowthFactor: 3},
			want: []int64{1000, 1000, 1000},
		},
		{
			name: "fractional minimum",
			cfg:  Config{MinimumDelay: 0.5, MaximumDelay: 100, GrowthFactor: 3},
			want: []int64{0, 1, 4, 13, 40, 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(tt.cfg)
			assert.Equal(t, tt.want, collect(g, len(tt.want)))
		})
	}
}

func TestGenerator_NeverExceedsMaximum(t *testing.T) {
	t.Parallel()

	configs := []Config{
		{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2, JitterRatio: 0.9},
		{MinimumDelay: 1, MaximumDelay: 50, GrowthFactor: 7, JitterRatio: 0.5},
		{MinimumDelay: 3000, MaximumDelay: 3000, GrowthFactor: 1.1, JitterRatio: 0.3},
		{},
	}

	for _, cfg := range configs {
		g := New(cfg, WithRandom(Seeded(42)))
		limit := g.Config().MaximumDelay
		for i := 0; i < 200; i++ {
			d := g.Next()
			require.LessOrEqual(t, float64(d), limit, "config %+v attempt %d", cfg, i)
		}
	}
}

func TestGenerator_AttemptCounter(t *testing.T) {
	t.Parallel()

	g := New(Config{})
	assert.Equal(t, 0, g.Attempts())

	for i := 1; i <= 12; i++ {
		g.Next()
		assert.Equal(t, i, g.Attempts())
	}

	g.Reset()
	assert.Equal(t, 0, g.Attempts())

	g.Reset()
	assert.Equal(t, 0, g.Attempts())
}

func TestGenerator_ResetRestartsSequence(t *testing.T) {
	t.Parallel()

	g := New(Config{MinimumDelay: 40, MaximumDelay: 2000, GrowthFactor: 3})
	first := g.Next()
	collect(g, 5)

	g.Reset()

	assert.Equal(t, first, g.Next())
	assert.Equal(t, int64(40), first)
	assert.Equal(t, int64(120), g.Next())
}

func TestGenerator_JitterFixedRandom(t *testing.T) {
	t.Parallel()

	cfg := Config{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2, JitterRatio: 0.5}

	tests := []struct {
		name   string
		random float64
		want   []int64
	}{
		// floor(0.1*10) = 1 is odd: deviation floor(0.1*0.5*raw) is added.
		{name: "odd bucket adds", random: 0.1, want: []int64{105, 210, 420}},
		// floor(0.05*10) = 0 is even: deviation floor(0.025*raw) is subtracted.
		{name: "even bucket subtracts", random: 0.05, want: []int64{98, 195, 390}},
		{name: "zero draw leaves delay unchanged", random: 0, want: []int64{100, 200, 400}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(cfg, WithRandom(Fixed(tt.random)))
			assert.Equal(t, tt.want, collect(g, len(tt.want)))
		})
	}
}

func TestGenerator_JitterClampedAfterDeviation(t *testing.T) {
	t.Parallel()

	// raw 9000 plus a deviation of about 1575 lands above the cap.
	g := New(Config{MinimumDelay: 9000, MaximumDelay: 10000, JitterRatio: 0.5}, WithRandom(Fixed(0.35)))
	assert.Equal(t, int64(10000), g.Next())

	// raw 12345 starts above the cap; subtracting floor(0.425*12345)=5246 pulls it under.
	g = New(Config{MinimumDelay: 12345, MaximumDelay: 10000, JitterRatio: 0.5}, WithRandom(Fixed(0.85)))
	assert.Equal(t, int64(7099), g.Next())
}

func TestGenerator_Defaults(t *testing.T) {
	t.Parallel()

	explicit := New(Config{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2})

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "all zero", cfg: Config{}},
		{name: "zero minimum", cfg: Config{MaximumDelay: 10000, GrowthFactor: 2}},
		{name: "zero maximum", cfg: Config{MinimumDelay: 100, GrowthFactor: 2}},
		{name: "zero factor", cfg: Config{MinimumDelay: 100, MaximumDelay: 10000}},
	}

	want := collect(explicit, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(tt.cfg)
			assert.Equal(t, explicit.Config(), g.Config())
			assert.Equal(t, want, collect(g, 10))
		})
	}
}

func TestGenerator_JitterRatioOutsideOpenIntervalIsIgnored(t *testing.T) {
	t.Parallel()

	base := Config{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2}
	want := collect(New(base), 8)

	for _, ratio := range []float64{0, 1, 1.5, -0.2, -1} {
		cfg := base
		cfg.JitterRatio = ratio

		g := New(cfg, WithRandom(Fixed(0.1)))
		assert.Zero(t, g.Config().JitterRatio, "ratio %v", ratio)
		assert.Equal(t, want, collect(g, 8), "ratio %v", ratio)
	}
}

func TestGenerator_NonNegative(t *testing.T) {
	t.Parallel()

	configs := []Config{
		{MinimumDelay: 1, MaximumDelay: 10, GrowthFactor: 1, JitterRatio: 0.99},
		{MinimumDelay: 100, MaximumDelay: 10000, GrowthFactor: 2, JitterRatio: 0.75},
		{MinimumDelay: 0.3, MaximumDelay: 5, GrowthFactor: 1.2, JitterRatio: 0.5},
	}

	for _, cfg := range configs {
		g := New(cfg, WithRandom(Seeded(7)))
		for i := 0; i < 500; i++ {
			require.GreaterOrEqual(t, g.Next(), int64(0), "config %+v attempt %d", cfg, i)
		}
	}
}

func TestGenerator_SaturatesOnOverflow(t *testing.T) {
	t.Parallel()

	for _, r := range []float64{0, 0.05, 0.1} {
		g := New(Config{JitterRatio: 0.5}, WithRandom(Fixed(r)))
		collect(g, 1500)

		assert.Equal(t, int64(DefaultMaximumDelay), g.Next(), "random %v", r)
		assert.Equal(t, 1501, g.Attempts())
	}
}

func TestGenerator_HugeMaximumStaysPositive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want int64
	}{
		{"max beyond int64", Config{MinimumDelay: 1, MaximumDelay: 1e19, GrowthFactor: 10}, math.MaxInt64},
		{"max at infinity", Config{MinimumDelay: 1, MaximumDelay: math.Inf(1), GrowthFactor: 10}, math.MaxInt64},
		{"jittered", Config{MinimumDelay: 1, MaximumDelay: 1e30, GrowthFactor: 10, JitterRatio: 0.5}, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := New(tt.cfg, WithRandom(Fixed(0.15)))
			var last int64
			for i := 0; i < 40; i++ {
				last = g.Next()
				require.GreaterOrEqual(t, last, int64(0), "attempt %d", i+1)
			}
			assert.Equal(t, tt.want, last)
		})
	}
}

func TestGenerator_NextDurationSaturates(t *testing.T) {
	t.Parallel()

	g := New(Config{MinimumDelay: 1e13, MaximumDelay: 1e13})
	assert.Equal(t, time.Duration(math.MaxInt64), g.NextDuration())

	g = New(Config{MinimumDelay: 1, MaximumDelay: 1e19, GrowthFactor: 10})
	for i := 0; i < 25; i++ {
		require.Positive(t, g.NextDuration(), "attempt %d", i+1)
	}

	g = New(Config{MinimumDelay: 9e12, MaximumDelay: 9e12})
	assert.Equal(t, 9e12*time.Millisecond, g.NextDuration(), "in range values are exact")
}

func TestGenerator_NextDuration(t *testing.T) {
	t.Parallel()

	g := New(Config{MinimumDelay: 25, MaximumDelay: 60})
	assert.Equal(t, 25*time.Millisecond, g.NextDuration())
	assert.Equal(t, 50*time.Millisecond, g.NextDuration())
	assert.Equal(t, 60*time.Millisecond, g.NextDuration())
}

func TestGenerator_ImplementsCenkaltiBackOff(t *testing.T) {
	t.Parallel()

	var b cbackoff.BackOff = New(Config{MinimumDelay: 10, MaximumDelay: 1000})

	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
}

func TestGenerator_NegativeInputsArePassedThrough(t *testing.T) {
	t.Parallel()

	g := New(Config{MinimumDelay: -50, MaximumDelay: 1000, GrowthFactor: 2})
	assert.Equal(t, int64(-50), g.Next())
	assert.Equal(t, -50.0, g.Config().MinimumDelay)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "zero config", cfg: Config{}},
		{name: "typical", cfg: Config{MinimumDelay: 100, MaximumDelay: 5000, GrowthFactor: 2, JitterRatio: 0.2}},
		{name: "jitter out of range is not an error", cfg: Config{JitterRatio: 3}},
		{name: "negative minimum", cfg: Config{MinimumDelay: -1}, wantErr: true},
		{name: "negative maximum", cfg: Config{MaximumDelay: -1}, wantErr: true},
		{name: "negative factor", cfg: Config{GrowthFactor: -2}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func BenchmarkGenerator_Next(b *testing.B) {
	g := New(Config{JitterRatio: 0.2}, WithRandom(Seeded(1)))
	for i := 0; i < b.N; i++ {
		if g.Attempts() > 16 {
			g.Reset()
		}
		g.Next()
	}
}
