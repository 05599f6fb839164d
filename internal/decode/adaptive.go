package decode

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid adaptive decoder config")

const (
	DefaultAlpha     = 1.0
	DefaultDecay     = 0.99
	DefaultGrowth    = 1.01
	DefaultMinWeight = 1e-12
	DefaultMaxWeight = 1e100
)

// AdaptiveConfig controls the clonal-expansion weight dynamics.
type AdaptiveConfig struct {
	// Alpha scales the confidence bonus subtracted from the distance.
	Alpha float64
	// Decay multiplies a detector's weight after a wrong prediction.
	Decay float64
	// Growth multiplies a detector's weight after a correct prediction.
	Growth float64
	// MinWeight is the floor applied after a decay.
	MinWeight float64
	// MaxWeight triggers a rescale of the whole vector when exceeded.
	MaxWeight float64
}

func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Alpha:     DefaultAlpha,
		Decay:     DefaultDecay,
		Growth:    DefaultGrowth,
		MinWeight: DefaultMinWeight,
		MaxWeight: DefaultMaxWeight,
	}
}

func (c AdaptiveConfig) Validate() error {
	switch {
	case math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0) || c.Alpha < 0:
		return fmt.Errorf("%w: alpha must be finite and >= 0, got %v", ErrInvalidConfig, c.Alpha)
	case !(c.Decay > 0 && c.Decay < 1):
		return fmt.Errorf("%w: decay must be in (0,1), got %v", ErrInvalidConfig, c.Decay)
	case !(c.Growth > 1) || math.IsInf(c.Growth, 1):
		return fmt.Errorf("%w: growth must be finite and > 1, got %v", ErrInvalidConfig, c.Growth)
	case !(c.MinWeight > 0 && c.MinWeight < 1):
		return fmt.Errorf("%w: min weight must be in (0,1), got %v", ErrInvalidConfig, c.MinWeight)
	case !(c.MaxWeight > 1) || math.IsInf(c.MaxWeight, 1):
		return fmt.Errorf("%w: max weight must be finite and > 1, got %v", ErrInvalidConfig, c.MaxWeight)
	}
	return nil
}

// Adaptive scores detectors by distance minus a bonus proportional to their
// max-normalized weight, and updates that weight after every trial.
type Adaptive struct {
	cfg     AdaptiveConfig
	weights []float64

	normalized []float64
	scores     []float64
}

func NewAdaptive(n int, cfg AdaptiveConfig) (*Adaptive, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: detector count must be >= 1, got %d", ErrInvalidConfig, n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return &Adaptive{
		cfg:        cfg,
		weights:    weights,
		normalized: make([]float64, n),
		scores:     make([]float64, n),
	}, nil
}

func (a *Adaptive) Name() string { return "adaptive" }

func (a *Adaptive) Config() AdaptiveConfig { return a.cfg }

// Weights returns a copy of the raw weight vector.
func (a *Adaptive) Weights() []float64 {
	return append([]float64(nil), a.weights...)
}

// Normalized writes weights divided by their maximum into dst, so the largest
// entry is exactly 1.
func (a *Adaptive) Normalized(dst []float64) []float64 {
	n := len(a.weights)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	maxWeight := a.weights[0]
	for _, w := range a.weights[1:] {
		if w > maxWeight {
			maxWeight = w
		}
	}
	for i, w := range a.weights {
		dst[i] = w / maxWeight
	}
	return dst
}

// Scores writes distance[i] - alpha*normalized[i] into dst.
func (a *Adaptive) Scores(distances []int, dst []float64) []float64 {
	a.checkLen(len(distances))
	a.normalized = a.Normalized(a.normalized)
	n := len(distances)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for i, d := range distances {
		dst[i] = float64(d) - a.cfg.Alpha*a.normalized[i]
	}
	return dst
}

func (a *Adaptive) Decode(distances []int) int {
	a.scores = a.Scores(distances, a.scores)
	return ArgMinFloat(a.scores)
}

// Observe applies the clonal update to the predicted detector: growth when
// it matched the truth, decay otherwise.
func (a *Adaptive) Observe(predicted, truth int) {
	if predicted < 0 || predicted >= len(a.weights) {
		panic(fmt.Sprintf("decode: predicted index %d out of range [0,%d)", predicted, len(a.weights)))
	}
	if predicted != truth {
		// a weight already below the floor after a rescale is held, never raised
		w := a.weights[predicted]
		a.weights[predicted] = math.Max(w*a.cfg.Decay, math.Min(w, a.cfg.MinWeight))
		return
	}
	a.weights[predicted] *= a.cfg.Growth
	if a.weights[predicted] > a.cfg.MaxWeight {
		a.rescale(a.weights[predicted])
	}
}

// rescale divides every weight by scale without re-applying the floor, so
// ratios and the normalized vector are kept. Only a quotient that underflows
// to zero is lifted to the smallest positive float.
func (a *Adaptive) rescale(scale float64) {
	for i, w := range a.weights {
		q := w / scale
		if q == 0 {
			q = math.SmallestNonzeroFloat64
		}
		a.weights[i] = q
	}
}

func (a *Adaptive) checkLen(n int) {
	if n != len(a.weights) {
		panic(fmt.Sprintf("decode: %d distances for %d weights", n, len(a.weights)))
	}
}
