package noise

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultHotCount = 5
	DefaultHotBoost = 3.0
)

var ErrInvalidDistribution = errors.New("invalid ground-truth distribution")

// Distribution is a normalized probability mass over detector indices.
type Distribution struct {
	probs []float64
	cdf   []float64
	last  int
}

// DrawLogWeights draws n independent standard-normal log-weights.
func DrawLogWeights(rng *rand.Rand, n int) []float64 {
	logWeights := make([]float64, n)
	for i := range logWeights {
		logWeights[i] = rng.NormFloat64()
	}
	return logWeights
}

// BoostHot adds boost to min(count, len(logWeights)) distinct indices chosen
// without replacement and returns those indices in draw order.
func BoostHot(rng *rand.Rand, logWeights []float64, count int, boost float64) []int {
	n := len(logWeights)
	if count > n {
		count = n
	}
	if count <= 0 {
		return nil
	}
	// partial Fisher-Yates over the index set
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	hot := make([]int, count)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(n-i)
		order[i], order[j] = order[j], order[i]
		hot[i] = order[i]
		logWeights[order[i]] += boost
	}
	return hot
}

// Softmax converts log-weights into a Distribution. The max log-weight is
// subtracted before exponentiating so large boosts cannot overflow.
func Softmax(logWeights []float64) (Distribution, error) {
	if len(logWeights) == 0 {
		return Distribution{}, fmt.Errorf("%w: no log-weights", ErrInvalidDistribution)
	}
	maxLog := math.Inf(-1)
	for i, v := range logWeights {
		if math.IsNaN(v) || math.IsInf(v, 1) {
			return Distribution{}, fmt.Errorf("%w: log-weight %d is %v", ErrInvalidDistribution, i, v)
		}
		if v > maxLog {
			maxLog = v
		}
	}
	if math.IsInf(maxLog, -1) {
		return Distribution{}, fmt.Errorf("%w: every log-weight is -Inf", ErrInvalidDistribution)
	}

	probs := make([]float64, len(logWeights))
	sum := 0.0
	for i, v := range logWeights {
		probs[i] = math.Exp(v - maxLog)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return NewDistribution(probs)
}

// NewDistribution validates explicit probabilities and prepares sampling.
// The values are renormalized to sum to exactly the accumulated total.
func NewDistribution(probs []float64) (Distribution, error) {
	if len(probs) == 0 {
		return Distribution{}, fmt.Errorf("%w: empty", ErrInvalidDistribution)
	}
	total := 0.0
	last := -1
	for i, p := range probs {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return Distribution{}, fmt.Errorf("%w: probability %d is %v", ErrInvalidDistribution, i, p)
		}
		if p > 0 {
			last = i
		}
		total += p
	}
	if last < 0 {
		return Distribution{}, fmt.Errorf("%w: no index has positive mass", ErrInvalidDistribution)
	}

	d := Distribution{
		probs: make([]float64, len(probs)),
		cdf:   make([]float64, len(probs)),
		last:  last,
	}
	acc := 0.0
	for i, p := range probs {
		d.probs[i] = p / total
		acc += d.probs[i]
		d.cdf[i] = acc
	}
	return d, nil
}

func (d Distribution) Len() int { return len(d.probs) }

// Probabilities returns a copy of the mass vector.
func (d Distribution) Probabilities() []float64 {
	return append([]float64(nil), d.probs...)
}

// Sample draws one index using a single uniform draw from rng.
func (d Distribution) Sample(rng *rand.Rand) int {
	return d.sampleAt(rng.Float64())
}

func (d Distribution) sampleAt(u float64) int {
	idx := sort.Search(len(d.cdf), func(i int) bool { return d.cdf[i] > u })
	if idx >= d.last {
		// rounding can leave the final cdf entry just below 1
		return d.last
	}
	return idx
}

// GroundTruth is the skewed categorical model over detectors: normal
// log-weights, a boosted hot subset, then softmax.
type GroundTruth struct {
	LogWeights   []float64
	Hot          []int
	Distribution Distribution
}

func NewGroundTruth(rng *rand.Rand, n, hotCount int, hotBoost float64) (GroundTruth, error) {
	if n < 1 {
		return GroundTruth{}, fmt.Errorf("%w: detector count must be >= 1, got %d", ErrInvalidDistribution, n)
	}
	logWeights := DrawLogWeights(rng, n)
	hot := BoostHot(rng, logWeights, hotCount, hotBoost)
	dist, err := Softmax(logWeights)
	if err != nil {
		return GroundTruth{}, err
	}
	return GroundTruth{LogWeights: logWeights, Hot: hot, Distribution: dist}, nil
}

// HotMass is the total probability carried by the boosted detectors.
func (g GroundTruth) HotMass() float64 {
	mass := 0.0
	for _, idx := range g.Hot {
		mass += g.Distribution.probs[idx]
	}
	return mass
}
