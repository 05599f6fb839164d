package noise

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"baqec/internal/detector"
)

func TestSoftmaxSumsToOneAndIsStable(t *testing.T) {
	dist, err := Softmax([]float64{1000, 1001, 999, -5})
	if err != nil {
		t.Fatalf("softmax: %v", err)
	}
	sum := 0.0
	for i, p := range dist.Probabilities() {
		if p < 0 || math.IsNaN(p) {
			t.Fatalf("probability %d invalid: %v", i, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("expected sum 1, got %v", sum)
	}
	probs := dist.Probabilities()
	if !(probs[1] > probs[0] && probs[0] > probs[2]) {
		t.Fatalf("unexpected ordering: %v", probs)
	}
}

func TestSoftmaxRejectsInvalidInput(t *testing.T) {
	cases := [][]float64{
		nil,
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), math.Inf(-1)},
	}
	for _, tc := range cases {
		if _, err := Softmax(tc); !errors.Is(err, ErrInvalidDistribution) {
			t.Fatalf("expected ErrInvalidDistribution for %v, got %v", tc, err)
		}
	}
}

func TestSoftmaxAcceptsNegativeInfinityEntries(t *testing.T) {
	dist, err := Softmax([]float64{math.Inf(-1), 0, math.Inf(-1)})
	if err != nil {
		t.Fatalf("softmax: %v", err)
	}
	probs := dist.Probabilities()
	if probs[0] != 0 || probs[1] != 1 || probs[2] != 0 {
		t.Fatalf("unexpected probabilities: %v", probs)
	}
}

func TestSampleNeverPicksZeroMass(t *testing.T) {
	dist, err := NewDistribution([]float64{0, 0.5, 0, 0.5, 0})
	if err != nil {
		t.Fatalf("new distribution: %v", err)
	}
	rng := rand.New(rand.NewSource(3))
	counts := make([]int, dist.Len())
	for i := 0; i < 5000; i++ {
		counts[dist.Sample(rng)]++
	}
	if counts[0] != 0 || counts[2] != 0 || counts[4] != 0 {
		t.Fatalf("zero-mass index sampled: %v", counts)
	}
	if counts[1] == 0 || counts[3] == 0 {
		t.Fatalf("positive-mass index never sampled: %v", counts)
	}
	if got := dist.sampleAt(0.9999999999999999); got != 3 {
		t.Fatalf("expected last positive index for u near 1, got %d", got)
	}
	if got := dist.sampleAt(0); got != 1 {
		t.Fatalf("expected first positive index for u=0, got %d", got)
	}
}

func TestNewDistributionRejectsAllZero(t *testing.T) {
	if _, err := NewDistribution([]float64{0, 0}); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("expected ErrInvalidDistribution, got %v", err)
	}
	if _, err := NewDistribution([]float64{0.5, -0.1}); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("expected ErrInvalidDistribution for negative mass, got %v", err)
	}
}

func TestBoostHotPicksDistinctIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	logWeights := make([]float64, 10)
	hot := BoostHot(rng, logWeights, 5, 3)
	if len(hot) != 5 {
		t.Fatalf("expected 5 hot indices, got %v", hot)
	}
	seen := map[int]bool{}
	for _, idx := range hot {
		if seen[idx] {
			t.Fatalf("duplicate hot index %d in %v", idx, hot)
		}
		seen[idx] = true
	}
	for i, v := range logWeights {
		want := 0.0
		if seen[i] {
			want = 3
		}
		if v != want {
			t.Fatalf("log-weight %d = %v, want %v", i, v, want)
		}
	}
}

func TestBoostHotClampsToPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	logWeights := make([]float64, 3)
	if hot := BoostHot(rng, logWeights, 5, 1); len(hot) != 3 {
		t.Fatalf("expected every index boosted, got %v", hot)
	}
	if hot := BoostHot(rng, logWeights, 0, 1); hot != nil {
		t.Fatalf("expected no hot indices, got %v", hot)
	}
}

func TestGroundTruthIsSkewedTowardHotDetectors(t *testing.T) {
	truth, err := NewGroundTruth(rand.New(rand.NewSource(0)), 64, DefaultHotCount, DefaultHotBoost)
	if err != nil {
		t.Fatalf("ground truth: %v", err)
	}
	if len(truth.Hot) != DefaultHotCount {
		t.Fatalf("expected %d hot detectors, got %v", DefaultHotCount, truth.Hot)
	}
	// uniform share of five detectors out of 64 is under 0.08
	if mass := truth.HotMass(); mass < 0.2 {
		t.Fatalf("expected skewed distribution, hot mass %v", mass)
	}
}

func TestCorruptExtremes(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := detector.RandomPattern(rng, 40)

	same := Corrupt(rng, p, 0)
	if !same.Equal(p) {
		t.Fatal("p=0 must not flip any bit")
	}
	flipped := Corrupt(rng, p, 1)
	if got := flipped.Distance(p); got != 40 {
		t.Fatalf("p=1 must flip every bit, distance %d", got)
	}
}

func TestCorruptConsumesOneDrawPerBit(t *testing.T) {
	p := detector.NewPattern(12)
	a := rand.New(rand.NewSource(9))
	b := rand.New(rand.NewSource(9))

	Corrupt(a, p, 0)
	for i := 0; i < 12; i++ {
		b.Float64()
	}
	if a.Int63() != b.Int63() {
		t.Fatal("expected Corrupt to consume exactly one draw per bit")
	}
}

func TestGeneratorValidatesInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pop, err := detector.NewPopulation(rng, 4, 8)
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	truth, err := NewGroundTruth(rng, 4, 1, 3)
	if err != nil {
		t.Fatalf("ground truth: %v", err)
	}
	if _, err := NewGenerator(pop, truth, 1.5); err == nil {
		t.Fatal("expected error for error rate > 1")
	}
	if _, err := NewGenerator(nil, truth, 0.1); err == nil {
		t.Fatal("expected error for nil population")
	}
	short, err := NewGroundTruth(rng, 3, 1, 3)
	if err != nil {
		t.Fatalf("ground truth: %v", err)
	}
	if _, err := NewGenerator(pop, short, 0.1); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("expected size mismatch error, got %v", err)
	}

	gen, err := NewGenerator(pop, truth, 0)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	for i := 0; i < 20; i++ {
		idx, syndrome := gen.Next(rng)
		if !syndrome.Equal(pop.Pattern(idx)) {
			t.Fatalf("noiseless syndrome differs from detector %d", idx)
		}
	}
}
