package stats

import (
	"fmt"
	"math"
	"sort"
)

// Avg returns the arithmetic mean.
func Avg(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	sum := 0.0
	for _, value := range values {
		sum += value
	}
	return sum / float64(len(values)), nil
}

// Std returns population standard deviation.
func Std(values []float64) (float64, error) {
	mean, err := Avg(values)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, value := range values {
		diff := mean - value
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

func Min(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	out := values[0]
	for _, value := range values[1:] {
		if value < out {
			out = value
		}
	}
	return out, nil
}

func Max(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	out := values[0]
	for _, value := range values[1:] {
		if value > out {
			out = value
		}
	}
	return out, nil
}

// Quantile interpolates linearly between the closest ranks, matching the
// numpy default.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("values must not be empty")
	}
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, fmt.Errorf("quantile must be in [0,1], got %v", q)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo)), nil
}

func SortedDescending(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	return out
}

// Cumulative returns running sums of values.
func Cumulative(values []float64) []float64 {
	out := make([]float64, len(values))
	acc := 0.0
	for i, value := range values {
		acc += value
		out[i] = acc
	}
	return out
}

// TopFraction reads the cumulative mass carried by the first max(1, n*frac)
// entries of a descending cumulative series.
func TopFraction(cumulative []float64, frac float64) float64 {
	if len(cumulative) == 0 {
		return 0
	}
	k := int(float64(len(cumulative)) * frac)
	if k < 1 {
		k = 1
	}
	if k > len(cumulative) {
		k = len(cumulative)
	}
	return cumulative[k-1]
}
