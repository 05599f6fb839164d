package experiment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"baqec/internal/decode"
	"baqec/internal/noise"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Detectors = 16
	cfg.SyndromeLen = 12
	cfg.Shots = 500
	cfg.Seed = 3
	return cfg
}

func TestRunRatesAreFractions(t *testing.T) {
	for _, rate := range []float64{0, 0.05, 0.3, 0.5, 1} {
		cfg := smallConfig()
		cfg.ErrorRate = rate
		res, err := Run(cfg)
		require.NoError(t, err)
		assert.Equal(t, cfg.Shots, res.Shots)
		assert.GreaterOrEqual(t, res.GreedyErrorRate, 0.0)
		assert.LessOrEqual(t, res.GreedyErrorRate, 1.0)
		assert.GreaterOrEqual(t, res.AdaptiveErrorRate, 0.0)
		assert.LessOrEqual(t, res.AdaptiveErrorRate, 1.0)
		assert.Equal(t, float64(res.GreedyErrors)/float64(res.Shots), res.GreedyErrorRate)
	}
}

func TestNoiselessGreedyNeverErrs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SyndromeLen = 32
	cfg.ErrorRate = 0
	cfg.Alpha = 0
	cfg.Shots = 2000
	cfg.Seed = 1

	sim, err := NewSimulation(cfg)
	require.NoError(t, err)
	require.False(t, sim.Population().HasDuplicates(), "fixture assumes distinct detector patterns")

	res := sim.Run(nil)
	assert.Zero(t, res.GreedyErrors)
	assert.Zero(t, res.GreedyErrorRate)
	assert.Zero(t, res.AdaptiveErrors)
}

func TestZeroAlphaAdaptiveMatchesGreedy(t *testing.T) {
	cfg := smallConfig()
	cfg.ErrorRate = 0.2
	cfg.Alpha = 0

	sim, err := NewSimulation(cfg)
	require.NoError(t, err)
	sim.Run(func(out Outcome) {
		require.Equal(t, out.Greedy, out.Adaptive, "shot %d", out.Shot)
	})
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	cfg := smallConfig()
	cfg.ErrorRate = 0.1
	first, err := Run(cfg)
	require.NoError(t, err)
	second, err := Run(cfg)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSingleNoiselessShotGolden(t *testing.T) {
	cfg := Config{
		Detectors:   4,
		SyndromeLen: 3,
		Shots:       1,
		ErrorRate:   0,
		Alpha:       1,
		Seed:        20240601,
		HotCount:    noise.DefaultHotCount,
		HotBoost:    noise.DefaultHotBoost,
		Decay:       decode.DefaultDecay,
		Growth:      decode.DefaultGrowth,
	}
	sim, err := NewSimulation(cfg)
	require.NoError(t, err)

	patterns := make([]string, sim.Population().Len())
	for i := range patterns {
		patterns[i] = sim.Population().Pattern(i).String()
	}
	assert.Equal(t, []string{"100", "100", "000", "110"}, patterns)

	truth := sim.GroundTruth()
	assert.Equal(t, []int{2, 1, 3, 0}, truth.Hot, "hot count is clamped to the population")
	assert.InDeltaSlice(t, []float64{2.3039881966151636, 4.241896025126449, 4.312643158135581, 2.124774256110855}, truth.LogWeights, 1e-12)
	assert.InDeltaSlice(t, []float64{0.061601313918428824, 0.4277722931552528, 0.45913218882304896, 0.051494204103269436}, truth.Distribution.Probabilities(), 1e-12)

	var outcomes []Outcome
	res := sim.Run(func(o Outcome) { outcomes = append(outcomes, o) })
	require.Len(t, outcomes, 1)
	assert.Equal(t, Outcome{Shot: 0, Truth: 3, Greedy: 3, Adaptive: 3}, outcomes[0])

	assert.True(t, res.DuplicatePatterns)
	assert.Zero(t, res.GreedyErrorRate)
	assert.Zero(t, res.AdaptiveErrorRate)
	assert.Equal(t, []float64{1, 1, 1, decode.DefaultGrowth}, sim.Adaptive().Weights())
}

func TestAdaptiveBeatsGreedyOnSkewedNoise(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical comparison is slow")
	}
	cfg := DefaultConfig()
	cfg.ErrorRate = 0.05
	cfg.Alpha = 1
	cfg.Shots = 20_000

	summary, err := Repeat(context.Background(), cfg, 20, 4)
	require.NoError(t, err)
	require.Len(t, summary.Runs, 20)
	assert.GreaterOrEqual(t, summary.WinFraction, 0.9, "adaptive <= greedy in %d/20 runs", summary.AdaptiveWins)
	assert.LessOrEqual(t, summary.AdaptiveMean, summary.GreedyMean)
}

func TestSimulationsDoNotShareAdaptiveState(t *testing.T) {
	cfg := smallConfig()
	cfg.ErrorRate = 0.2

	alone, err := Run(cfg)
	require.NoError(t, err)

	first, err := NewSimulation(cfg)
	require.NoError(t, err)
	second, err := NewSimulation(cfg)
	require.NoError(t, err)
	for i := 0; i < cfg.Shots; i++ {
		first.Step()
		second.Step()
	}
	assert.Equal(t, alone, first.Result())
	assert.Equal(t, alone, second.Result())
}

func TestConfigValidation(t *testing.T) {
	cases := map[string]func(*Config){
		"no detectors":    func(c *Config) { c.Detectors = 0 },
		"no length":       func(c *Config) { c.SyndromeLen = 0 },
		"no shots":        func(c *Config) { c.Shots = 0 },
		"negative rate":   func(c *Config) { c.ErrorRate = -0.1 },
		"rate above one":  func(c *Config) { c.ErrorRate = 1.1 },
		"nan rate":        func(c *Config) { c.ErrorRate = math.NaN() },
		"negative hot":    func(c *Config) { c.HotCount = -1 },
		"infinite boost":  func(c *Config) { c.HotBoost = math.Inf(1) },
		"negative alpha":  func(c *Config) { c.Alpha = -1 },
		"growth too weak": func(c *Config) { c.Growth = 1 },
		"decay too weak":  func(c *Config) { c.Decay = 1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			_, err := Run(cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.Alpha = -1
	require.ErrorIs(t, cfg.Validate(), decode.ErrInvalidConfig)
	require.NoError(t, DefaultConfig().Validate())
}

func TestSweepKeepsOrderAndSeedPolicy(t *testing.T) {
	rates := []float64{0.2, 0.01, 0.1}
	base := smallConfig()

	shared, err := Sweep(context.Background(), SweepRequest{Base: base, ErrorRates: rates, Workers: 3})
	require.NoError(t, err)
	require.Len(t, shared, len(rates))
	for i, res := range shared {
		assert.Equal(t, rates[i], res.Config.ErrorRate)
		assert.Equal(t, base.Seed, res.Config.Seed)
		assert.Equal(t, shared[0].HotMass, res.HotMass, "shared seed keeps the ground truth fixed")
	}

	offset, err := Sweep(context.Background(), SweepRequest{Base: base, ErrorRates: rates, SeedPolicy: SeedOffset, Workers: 2})
	require.NoError(t, err)
	for i, res := range offset {
		assert.Equal(t, base.Seed+int64(i), res.Config.Seed)
	}

	sequential, err := Sweep(context.Background(), SweepRequest{Base: base, ErrorRates: rates, SeedPolicy: SeedOffset, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, sequential, offset, "worker count must not change results")
}

func TestSweepFailsFastOnInvalidPoint(t *testing.T) {
	_, err := Sweep(context.Background(), SweepRequest{Base: smallConfig(), ErrorRates: []float64{0.1, 2}})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Sweep(context.Background(), SweepRequest{Base: smallConfig()})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Sweep(context.Background(), SweepRequest{Base: smallConfig(), ErrorRates: []float64{0.1}, SeedPolicy: "random"})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := RunAll(ctx, []Config{smallConfig(), smallConfig()}, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRepeatRejectsInvalidInput(t *testing.T) {
	_, err := Repeat(context.Background(), smallConfig(), 0, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg := smallConfig()
	cfg.Shots = 0
	_, err = Repeat(context.Background(), cfg, 3, 1)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResultImprovement(t *testing.T) {
	assert.Equal(t, 2.0, Result{GreedyErrorRate: 0.2, AdaptiveErrorRate: 0.1}.Improvement())
	assert.True(t, math.IsInf(Result{GreedyErrorRate: 0.2}.Improvement(), 1))
	assert.Equal(t, 1.0, Result{}.Improvement())
}
