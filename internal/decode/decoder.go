package decode

import (
	"baqec/internal/detector"
)

// Decoder picks a detector index from a distance vector and may learn from
// the ground truth once it is revealed.
type Decoder interface {
	Name() string
	Decode(distances []int) int
	Observe(predicted, truth int)
}

// Distances fills dst with the Hamming distance from syndrome to every
// detector. dst is reused when it has enough capacity.
func Distances(syndrome detector.Pattern, population *detector.Population, dst []int) []int {
	n := population.Len()
	if cap(dst) < n {
		dst = make([]int, n)
	}
	dst = dst[:n]
	for i := 0; i < n; i++ {
		dst[i] = syndrome.Distance(population.Pattern(i))
	}
	return dst
}

// ArgMin returns the index of the smallest value; the lowest index wins ties.
// It returns -1 for an empty slice.
func ArgMin(values []int) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[best] {
			best = i
		}
	}
	return best
}

// ArgMinFloat is ArgMin for float scores.
func ArgMinFloat(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[best] {
			best = i
		}
	}
	return best
}

// Greedy is the stateless minimum-distance baseline.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Decode(distances []int) int { return ArgMin(distances) }

func (Greedy) Observe(int, int) {}
