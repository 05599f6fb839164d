package experiment

import (
	"errors"
	"fmt"
	"math"

	"baqec/internal/decode"
	"baqec/internal/noise"
)

var ErrInvalidConfig = errors.New("invalid experiment config")

// Config describes one decoding run.
type Config struct {
	Detectors   int     `json:"detectors"`
	SyndromeLen int     `json:"syndrome_len"`
	Shots       int     `json:"shots"`
	ErrorRate   float64 `json:"error_rate"`
	Alpha       float64 `json:"alpha"`
	Seed        int64   `json:"seed"`
	HotCount    int     `json:"hot_count"`
	HotBoost    float64 `json:"hot_boost"`
	Decay       float64 `json:"decay"`
	Growth      float64 `json:"growth"`
}

func DefaultConfig() Config {
	return Config{
		Detectors:   64,
		SyndromeLen: 24,
		Shots:       10_000,
		ErrorRate:   0.05,
		Alpha:       decode.DefaultAlpha,
		Seed:        0,
		HotCount:    noise.DefaultHotCount,
		HotBoost:    noise.DefaultHotBoost,
		Decay:       decode.DefaultDecay,
		Growth:      decode.DefaultGrowth,
	}
}

// Validate reports the first invalid parameter. It never runs a trial.
func (c Config) Validate() error {
	switch {
	case c.Detectors < 1:
		return fmt.Errorf("%w: detectors must be >= 1, got %d", ErrInvalidConfig, c.Detectors)
	case c.SyndromeLen < 1:
		return fmt.Errorf("%w: syndrome length must be >= 1, got %d", ErrInvalidConfig, c.SyndromeLen)
	case c.Shots < 1:
		return fmt.Errorf("%w: shots must be >= 1, got %d", ErrInvalidConfig, c.Shots)
	case math.IsNaN(c.ErrorRate) || c.ErrorRate < 0 || c.ErrorRate > 1:
		return fmt.Errorf("%w: physical error rate must be in [0,1], got %v", ErrInvalidConfig, c.ErrorRate)
	case c.HotCount < 0:
		return fmt.Errorf("%w: hot count must be >= 0, got %d", ErrInvalidConfig, c.HotCount)
	case math.IsNaN(c.HotBoost) || math.IsInf(c.HotBoost, 0):
		return fmt.Errorf("%w: hot boost must be finite, got %v", ErrInvalidConfig, c.HotBoost)
	}
	if err := c.adaptiveConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) adaptiveConfig() decode.AdaptiveConfig {
	cfg := decode.DefaultAdaptiveConfig()
	cfg.Alpha = c.Alpha
	cfg.Decay = c.Decay
	cfg.Growth = c.Growth
	return cfg
}
