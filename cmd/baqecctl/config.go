package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"baqec/internal/experiment"
)

const (
	defaultWorkers = 4
	defaultRepeats = 10
)

// runConfig is everything a decoding command can take from a JSON config
// file or from flags.
type runConfig struct {
	Experiment experiment.Config
	ErrorRates []float64
	SeedPolicy string
	Workers    int
	Repeats    int
	Notes      string
}

func defaultRunConfig() runConfig {
	return runConfig{
		Experiment: experiment.DefaultConfig(),
		ErrorRates: experiment.DefaultErrorRates(),
		SeedPolicy: string(experiment.SeedShared),
		Workers:    defaultWorkers,
		Repeats:    defaultRepeats,
	}
}

func loadRunConfigFromFile(path string) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return runConfig{}, err
	}

	cfg := defaultRunConfig()
	if v, ok := asInt(raw["detectors"]); ok {
		cfg.Experiment.Detectors = v
	}
	if v, ok := asInt(raw["syndrome_len"]); ok {
		cfg.Experiment.SyndromeLen = v
	}
	if v, ok := asInt(raw["shots"]); ok {
		cfg.Experiment.Shots = v
	}
	if v, ok := asFloat64(raw["error_rate"]); ok {
		cfg.Experiment.ErrorRate = v
	}
	if v, ok := asFloat64(raw["alpha"]); ok {
		cfg.Experiment.Alpha = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		cfg.Experiment.Seed = v
	}
	if v, ok := asInt(raw["hot_count"]); ok {
		cfg.Experiment.HotCount = v
	}
	if v, ok := asFloat64(raw["hot_boost"]); ok {
		cfg.Experiment.HotBoost = v
	}
	if v, ok := asFloat64(raw["decay"]); ok {
		cfg.Experiment.Decay = v
	}
	if v, ok := asFloat64(raw["growth"]); ok {
		cfg.Experiment.Growth = v
	}
	if rawRates, present := raw["error_rates"]; present {
		rates, ok := asFloat64Slice(rawRates)
		if !ok {
			return runConfig{}, fmt.Errorf("error_rates must be a list of numbers")
		}
		cfg.ErrorRates = rates
	}
	if v, ok := asString(raw["seed_policy"]); ok {
		cfg.SeedPolicy = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		cfg.Workers = v
	}
	if v, ok := asInt(raw["repeats"]); ok {
		cfg.Repeats = v
	}
	if v, ok := asString(raw["notes"]); ok {
		cfg.Notes = v
	}
	return cfg, nil
}

func loadOrDefaultRunConfig(configPath string) (runConfig, error) {
	if configPath == "" {
		return defaultRunConfig(), nil
	}
	cfg, err := loadRunConfigFromFile(configPath)
	if err != nil {
		return runConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// runFlags binds the decoding flags shared by demo, run, sweep and compare.
type runFlags struct {
	configPath  *string
	detectors   *int
	syndromeLen *int
	shots       *int
	errorRate   *float64
	errorRates  *string
	alpha       *float64
	seed        *int64
	hotCount    *int
	hotBoost    *float64
	decay       *float64
	growth      *float64
	seedPolicy  *string
	workers     *int
	repeats     *int
	notes       *string
}

func addRunFlags(fs *flag.FlagSet, defaultShots int) *runFlags {
	def := defaultRunConfig()
	return &runFlags{
		configPath:  fs.String("config", "", "optional run config JSON path"),
		detectors:   fs.Int("detectors", def.Experiment.Detectors, "detector population size"),
		syndromeLen: fs.Int("syndrome-len", def.Experiment.SyndromeLen, "bits per detector pattern"),
		shots:       fs.Int("shots", defaultShots, "trials per run"),
		errorRate:   fs.Float64("p", def.Experiment.ErrorRate, "physical per-bit error rate"),
		errorRates:  fs.String("rates", formatRates(def.ErrorRates), "comma-separated physical error rates for sweeps"),
		alpha:       fs.Float64("alpha", def.Experiment.Alpha, "weight bonus strength of the adaptive decoder"),
		seed:        fs.Int64("seed", def.Experiment.Seed, "rng seed"),
		hotCount:    fs.Int("hot-count", def.Experiment.HotCount, "detectors boosted in the ground-truth distribution"),
		hotBoost:    fs.Float64("hot-boost", def.Experiment.HotBoost, "log-weight boost of hot detectors"),
		decay:       fs.Float64("decay", def.Experiment.Decay, "weight factor applied after a wrong prediction"),
		growth:      fs.Float64("growth", def.Experiment.Growth, "weight factor applied after a correct prediction"),
		seedPolicy:  fs.String("seed-policy", def.SeedPolicy, "sweep seed policy: shared|offset"),
		workers:     fs.Int("workers", def.Workers, "parallel runs"),
		repeats:     fs.Int("repeats", def.Repeats, "repeated runs for compare"),
		notes:       fs.String("notes", "", "free-form notes stored with a sweep"),
	}
}

// resolve loads the config file (or defaults) and applies only the flags
// that were set explicitly, so file values win over flag defaults.
func (f *runFlags) resolve(fs *flag.FlagSet, defaultShots int) (runConfig, error) {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})

	cfg, err := loadOrDefaultRunConfig(*f.configPath)
	if err != nil {
		return runConfig{}, err
	}
	if *f.configPath == "" {
		cfg.Experiment.Shots = defaultShots
	}
	flagValue := map[string]any{
		"detectors":    *f.detectors,
		"syndrome-len": *f.syndromeLen,
		"shots":        *f.shots,
		"p":            *f.errorRate,
		"rates":        *f.errorRates,
		"alpha":        *f.alpha,
		"seed":         *f.seed,
		"hot-count":    *f.hotCount,
		"hot-boost":    *f.hotBoost,
		"decay":        *f.decay,
		"growth":       *f.growth,
		"seed-policy":  *f.seedPolicy,
		"workers":      *f.workers,
		"repeats":      *f.repeats,
		"notes":        *f.notes,
	}
	if err := overrideFromFlags(&cfg, set, flagValue); err != nil {
		return runConfig{}, err
	}
	return cfg, nil
}

func overrideFromFlags(cfg *runConfig, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "detectors":
			cfg.Experiment.Detectors = v.(int)
		case "syndrome-len":
			cfg.Experiment.SyndromeLen = v.(int)
		case "shots":
			cfg.Experiment.Shots = v.(int)
		case "p":
			cfg.Experiment.ErrorRate = v.(float64)
		case "rates":
			rates, err := parseRates(v.(string))
			if err != nil {
				return err
			}
			cfg.ErrorRates = rates
		case "alpha":
			cfg.Experiment.Alpha = v.(float64)
		case "seed":
			cfg.Experiment.Seed = v.(int64)
		case "hot-count":
			cfg.Experiment.HotCount = v.(int)
		case "hot-boost":
			cfg.Experiment.HotBoost = v.(float64)
		case "decay":
			cfg.Experiment.Decay = v.(float64)
		case "growth":
			cfg.Experiment.Growth = v.(float64)
		case "seed-policy":
			cfg.SeedPolicy = v.(string)
		case "workers":
			cfg.Workers = v.(int)
		case "repeats":
			cfg.Repeats = v.(int)
		case "notes":
			cfg.Notes = v.(string)
		}
	}
	return nil
}

func parseRates(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	rates := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid error rate %q: %w", part, err)
		}
		rates = append(rates, v)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("at least one error rate is required")
	}
	return rates, nil
}

func formatRates(rates []float64) string {
	parts := make([]string, len(rates))
	for i, r := range rates {
		parts[i] = strconv.FormatFloat(r, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

func asFloat64Slice(v any) ([]float64, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := asFloat64(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}
