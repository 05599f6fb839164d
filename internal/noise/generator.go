package noise

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"baqec/internal/detector"
)

// Corrupt copies pattern and flips each bit independently with probability p.
// Exactly one uniform draw is consumed per bit regardless of p.
func Corrupt(rng *rand.Rand, pattern detector.Pattern, p float64) detector.Pattern {
	out := pattern.Clone()
	for i := 0; i < out.Len(); i++ {
		if rng.Float64() < p {
			out.Flip(i)
		}
	}
	return out
}

// Generator draws (truth, syndrome) pairs for a fixed population.
type Generator struct {
	population *detector.Population
	truth      GroundTruth
	errorRate  float64
}

func NewGenerator(population *detector.Population, truth GroundTruth, errorRate float64) (*Generator, error) {
	if population == nil || population.Len() == 0 {
		return nil, errors.New("generator requires a non-empty population")
	}
	if truth.Distribution.Len() != population.Len() {
		return nil, fmt.Errorf("%w: %d probabilities for %d detectors", ErrInvalidDistribution, truth.Distribution.Len(), population.Len())
	}
	if math.IsNaN(errorRate) || errorRate < 0 || errorRate > 1 {
		return nil, fmt.Errorf("physical error rate must be in [0,1], got %v", errorRate)
	}
	return &Generator{population: population, truth: truth, errorRate: errorRate}, nil
}

func (g *Generator) ErrorRate() float64 { return g.errorRate }

func (g *Generator) GroundTruth() GroundTruth { return g.truth }

// Next samples the true detector and returns its noisy syndrome.
func (g *Generator) Next(rng *rand.Rand) (int, detector.Pattern) {
	truth := g.truth.Distribution.Sample(rng)
	return truth, Corrupt(rng, g.population.Pattern(truth), g.errorRate)
}
