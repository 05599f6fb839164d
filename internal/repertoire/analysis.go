package repertoire

import (
	"fmt"
	"math/rand"

	"baqec/internal/stats"
)

const DefaultMaxPairs = 10_000

// DistanceSummary describes Hamming distances between random same-length
// sequence pairs.
type DistanceSummary struct {
	Length        int     `json:"length"`
	Sequences     int     `json:"sequences"`
	Pairs         int     `json:"pairs"`
	Mean          float64 `json:"mean"`
	Std           float64 `json:"std"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	P1            float64 `json:"p1"`
	P5            float64 `json:"p5"`
	P10           float64 `json:"p10"`
	ApproxCodeMin float64 `json:"approx_code_distance"`
}

// DistanceStats samples min(maxPairs, k(k-1)/2) random pairs from the
// dominant-length subset. The lower tail (1st percentile) stands in for the
// code distance of the repertoire.
func DistanceStats(rng *rand.Rand, sequences []string, maxPairs int) (DistanceSummary, error) {
	if len(sequences) == 0 {
		return DistanceSummary{}, ErrNoSequences
	}
	subset, length := DominantLengthSubset(sequences)
	if len(subset) < 2 {
		return DistanceSummary{}, fmt.Errorf("not enough same-length sequences: %d", len(subset))
	}
	if maxPairs <= 0 {
		maxPairs = DefaultMaxPairs
	}
	pairs := len(subset) * (len(subset) - 1) / 2
	if pairs > maxPairs {
		pairs = maxPairs
	}

	distances := make([]float64, pairs)
	for i := range distances {
		a := rng.Intn(len(subset))
		b := rng.Intn(len(subset) - 1)
		if b >= a {
			b++
		}
		d, err := Hamming(subset[a], subset[b])
		if err != nil {
			return DistanceSummary{}, err
		}
		distances[i] = float64(d)
	}

	summary := DistanceSummary{Length: length, Sequences: len(subset), Pairs: pairs}
	summary.Mean, _ = stats.Avg(distances)
	summary.Std, _ = stats.Std(distances)
	summary.Min, _ = stats.Min(distances)
	summary.Max, _ = stats.Max(distances)
	summary.P1, _ = stats.Quantile(distances, 0.01)
	summary.P5, _ = stats.Quantile(distances, 0.05)
	summary.P10, _ = stats.Quantile(distances, 0.10)
	summary.ApproxCodeMin = summary.P1
	return summary, nil
}

const (
	DefaultExpansionRounds = 10
	DefaultExpansionGamma  = 3.0
)

// Expansion is the outcome of a clonal expansion run.
type Expansion struct {
	Antigen    string    `json:"antigen"`
	Sizes      []float64 `json:"sizes"`
	Affinities []float64 `json:"affinities"`
}

// SimulateClonalExpansion draws a random antigen of the sequences' length,
// scores affinity as 1 - d/L and grows each clone by 1 + gamma*affinity per
// round, renormalizing total mass to 1.
func SimulateClonalExpansion(rng *rand.Rand, sequences []string, rounds int, gamma float64) (Expansion, error) {
	if len(sequences) == 0 {
		return Expansion{}, ErrNoSequences
	}
	if rounds < 0 {
		return Expansion{}, fmt.Errorf("rounds must be >= 0, got %d", rounds)
	}
	if gamma < 0 {
		return Expansion{}, fmt.Errorf("gamma must be >= 0, got %v", gamma)
	}
	length := len(sequences[0])
	if length == 0 {
		return Expansion{}, fmt.Errorf("sequences must not be empty strings")
	}

	antigen := make([]byte, length)
	for i := range antigen {
		antigen[i] = AminoAlphabet[rng.Intn(len(AminoAlphabet))]
	}

	affinities := make([]float64, len(sequences))
	growth := make([]float64, len(sequences))
	for i, seq := range sequences {
		d, err := Hamming(seq, string(antigen))
		if err != nil {
			return Expansion{}, fmt.Errorf("sequence %d: %w", i, err)
		}
		affinities[i] = 1 - float64(d)/float64(length)
		growth[i] = 1 + gamma*clip01(affinities[i])
	}

	sizes := make([]float64, len(sequences))
	for i := range sizes {
		sizes[i] = 1
	}
	for r := 0; r < rounds; r++ {
		total := 0.0
		for i := range sizes {
			sizes[i] *= growth[i]
			total += sizes[i]
		}
		for i := range sizes {
			sizes[i] /= total
		}
	}
	return Expansion{Antigen: string(antigen), Sizes: sizes, Affinities: affinities}, nil
}

// ConcentrationSummary reports how much mass the largest clones carry.
type ConcentrationSummary struct {
	Sorted     []float64 `json:"sorted"`
	Cumulative []float64 `json:"cumulative"`
	Top1       float64   `json:"top_1pct"`
	Top5       float64   `json:"top_5pct"`
	Top10      float64   `json:"top_10pct"`
}

func Concentration(sizes []float64) ConcentrationSummary {
	sorted := stats.SortedDescending(sizes)
	cumulative := stats.Cumulative(sorted)
	return ConcentrationSummary{
		Sorted:     sorted,
		Cumulative: cumulative,
		Top1:       stats.TopFraction(cumulative, 0.01),
		Top5:       stats.TopFraction(cumulative, 0.05),
		Top10:      stats.TopFraction(cumulative, 0.10),
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
