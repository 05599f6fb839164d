package experiment

import (
	"context"
	"fmt"
	"sync"

	"baqec/internal/stats"
)

type SeedPolicy string

const (
	// SeedShared runs every point with Base.Seed, so all points share the
	// same population and ground-truth distribution.
	SeedShared SeedPolicy = "shared"
	// SeedOffset runs point i with Base.Seed+i.
	SeedOffset SeedPolicy = "offset"
)

func ParseSeedPolicy(name string) (SeedPolicy, error) {
	switch SeedPolicy(name) {
	case "", SeedShared:
		return SeedShared, nil
	case SeedOffset:
		return SeedOffset, nil
	default:
		return "", fmt.Errorf("%w: unsupported seed policy %q", ErrInvalidConfig, name)
	}
}

// DefaultErrorRates is the physical error rate sweep of the reference demo.
func DefaultErrorRates() []float64 {
	return []float64{0.01, 0.03, 0.05, 0.10}
}

type SweepRequest struct {
	Base       Config
	ErrorRates []float64
	SeedPolicy SeedPolicy
	Workers    int
}

// SweepConfigs expands the request into one validated config per error rate.
func SweepConfigs(req SweepRequest) ([]Config, error) {
	if len(req.ErrorRates) == 0 {
		return nil, fmt.Errorf("%w: at least one error rate is required", ErrInvalidConfig)
	}
	policy, err := ParseSeedPolicy(string(req.SeedPolicy))
	if err != nil {
		return nil, err
	}
	configs := make([]Config, len(req.ErrorRates))
	for i, rate := range req.ErrorRates {
		cfg := req.Base
		cfg.ErrorRate = rate
		if policy == SeedOffset {
			cfg.Seed = req.Base.Seed + int64(i)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("sweep point %d: %w", i, err)
		}
		configs[i] = cfg
	}
	return configs, nil
}

// Sweep runs one independent simulation per error rate. Results keep the
// order of req.ErrorRates.
func Sweep(ctx context.Context, req SweepRequest) ([]Result, error) {
	configs, err := SweepConfigs(req)
	if err != nil {
		return nil, err
	}
	return RunAll(ctx, configs, req.Workers)
}

// RepeatSummary compares both decoders over repeated runs of one config.
type RepeatSummary struct {
	Runs []Result `json:"runs"`
	// AdaptiveWins counts runs where the adaptive rate was <= the greedy rate.
	AdaptiveWins int     `json:"adaptive_wins"`
	WinFraction  float64 `json:"win_fraction"`
	GreedyMean   float64 `json:"greedy_mean"`
	GreedyStd    float64 `json:"greedy_std"`
	AdaptiveMean float64 `json:"adaptive_mean"`
	AdaptiveStd  float64 `json:"adaptive_std"`
}

// Repeat runs cfg repeats times with seeds cfg.Seed, cfg.Seed+1, ...
func Repeat(ctx context.Context, cfg Config, repeats, workers int) (RepeatSummary, error) {
	if repeats < 1 {
		return RepeatSummary{}, fmt.Errorf("%w: repeats must be >= 1, got %d", ErrInvalidConfig, repeats)
	}
	if err := cfg.Validate(); err != nil {
		return RepeatSummary{}, err
	}
	configs := make([]Config, repeats)
	for i := range configs {
		configs[i] = cfg
		configs[i].Seed = cfg.Seed + int64(i)
	}
	runs, err := RunAll(ctx, configs, workers)
	if err != nil {
		return RepeatSummary{}, err
	}

	summary := RepeatSummary{Runs: runs}
	greedy := make([]float64, len(runs))
	adaptive := make([]float64, len(runs))
	for i, run := range runs {
		greedy[i] = run.GreedyErrorRate
		adaptive[i] = run.AdaptiveErrorRate
		if run.AdaptiveErrorRate <= run.GreedyErrorRate {
			summary.AdaptiveWins++
		}
	}
	summary.WinFraction = float64(summary.AdaptiveWins) / float64(len(runs))
	summary.GreedyMean, _ = stats.Avg(greedy)
	summary.GreedyStd, _ = stats.Std(greedy)
	summary.AdaptiveMean, _ = stats.Avg(adaptive)
	summary.AdaptiveStd, _ = stats.Std(adaptive)
	return summary, nil
}

// RunAll runs independent configs on a bounded worker pool. Each run owns its
// state, so only whole runs are parallelized. Results keep input order.
func RunAll(ctx context.Context, configs []Config, workers int) ([]Result, error) {
	type job struct {
		idx int
		cfg Config
	}
	type result struct {
		idx int
		res Result
		err error
	}

	if len(configs) == 0 {
		return nil, nil
	}
	workerCount := workers
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(configs) {
		workerCount = len(configs)
	}

	jobs := make(chan job)
	results := make(chan result, len(configs))

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				res, err := Run(j.cfg)
				results <- result{idx: j.idx, res: res, err: err}
			}
		}()
	}

	for i, cfg := range configs {
		jobs <- job{idx: i, cfg: cfg}
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]Result, len(configs))
	var firstErr error
	firstErrIdx := len(configs)
	for r := range results {
		if r.err != nil {
			if r.idx < firstErrIdx {
				firstErr = r.err
				firstErrIdx = r.idx
			}
			continue
		}
		out[r.idx] = r.res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
