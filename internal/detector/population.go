package detector

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrInvalidShape = errors.New("invalid detector population shape")

// Detector is one candidate correction pattern in a population.
type Detector struct {
	Index   int
	Pattern Pattern
}

// Population is an ordered, fixed set of equal-length detectors. It is
// generated once per run and never mutated afterwards.
type Population struct {
	detectors []Detector
	length    int
}

// NewPopulation draws n independent uniform random patterns of the given length.
func NewPopulation(rng *rand.Rand, n, length int) (*Population, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: detector count must be >= 1, got %d", ErrInvalidShape, n)
	}
	if length < 1 {
		return nil, fmt.Errorf("%w: pattern length must be >= 1, got %d", ErrInvalidShape, length)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	detectors := make([]Detector, n)
	for i := range detectors {
		detectors[i] = Detector{Index: i, Pattern: RandomPattern(rng, length)}
	}
	return &Population{detectors: detectors, length: length}, nil
}

// FromPatterns builds a population from explicit patterns, mostly for tests
// and fixtures. The patterns are copied.
func FromPatterns(patterns []Pattern) (*Population, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("%w: at least one pattern is required", ErrInvalidShape)
	}
	length := patterns[0].Len()
	if length < 1 {
		return nil, fmt.Errorf("%w: pattern length must be >= 1, got %d", ErrInvalidShape, length)
	}
	detectors := make([]Detector, len(patterns))
	for i, p := range patterns {
		if p.Len() != length {
			return nil, fmt.Errorf("%w: pattern %d has length %d, want %d", ErrInvalidShape, i, p.Len(), length)
		}
		detectors[i] = Detector{Index: i, Pattern: p.Clone()}
	}
	return &Population{detectors: detectors, length: length}, nil
}

func (p *Population) Len() int { return len(p.detectors) }

// PatternLen is the shared bit length of every detector.
func (p *Population) PatternLen() int { return p.length }

func (p *Population) Detector(i int) Detector { return p.detectors[i] }

func (p *Population) Pattern(i int) Pattern { return p.detectors[i].Pattern }

// FirstMatch returns the lowest index whose pattern equals target, or -1.
func (p *Population) FirstMatch(target Pattern) int {
	for _, d := range p.detectors {
		if d.Pattern.Equal(target) {
			return d.Index
		}
	}
	return -1
}

// HasDuplicates reports whether two detectors share the same pattern. A
// population with duplicates can never be decoded error-free.
func (p *Population) HasDuplicates() bool {
	seen := make(map[string]struct{}, len(p.detectors))
	for _, d := range p.detectors {
		key := d.Pattern.String()
		if _, ok := seen[key]; ok {
			return true
		}
		seen[key] = struct{}{}
	}
	return false
}
