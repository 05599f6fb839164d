package experiment

import (
	"math"
	"math/rand"

	"baqec/internal/decode"
	"baqec/internal/detector"
	"baqec/internal/noise"
)

// Outcome is one trial: the true detector and both predictions.
type Outcome struct {
	Shot     int
	Truth    int
	Greedy   int
	Adaptive int
}

// Result aggregates a run. Rates are fractions of shots in [0,1].
type Result struct {
	Config            Config  `json:"config"`
	Shots             int     `json:"shots"`
	GreedyErrors      int     `json:"greedy_errors"`
	AdaptiveErrors    int     `json:"adaptive_errors"`
	GreedyErrorRate   float64 `json:"greedy_error_rate"`
	AdaptiveErrorRate float64 `json:"adaptive_error_rate"`
	HotMass           float64 `json:"hot_mass"`
	DuplicatePatterns bool    `json:"duplicate_patterns,omitempty"`
}

// Improvement is greedy/adaptive error rate; +Inf when the adaptive decoder
// made no errors and the greedy one did, 1 when both are perfect.
func (r Result) Improvement() float64 {
	switch {
	case r.AdaptiveErrorRate > 0:
		return r.GreedyErrorRate / r.AdaptiveErrorRate
	case r.GreedyErrorRate > 0:
		return math.Inf(1)
	default:
		return 1
	}
}

// Simulation owns every piece of state of one run: the random source, the
// fixed population, the ground-truth model and both decoders.
type Simulation struct {
	cfg        Config
	rng        *rand.Rand
	population *detector.Population
	generator  *noise.Generator
	greedy     decode.Greedy
	adaptive   *decode.Adaptive

	distances      []int
	shots          int
	greedyErrors   int
	adaptiveErrors int
}

// NewSimulation validates cfg and draws the population and ground truth from
// a source seeded with cfg.Seed.
func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	population, err := detector.NewPopulation(rng, cfg.Detectors, cfg.SyndromeLen)
	if err != nil {
		return nil, err
	}
	truth, err := noise.NewGroundTruth(rng, cfg.Detectors, cfg.HotCount, cfg.HotBoost)
	if err != nil {
		return nil, err
	}
	generator, err := noise.NewGenerator(population, truth, cfg.ErrorRate)
	if err != nil {
		return nil, err
	}
	adaptive, err := decode.NewAdaptive(cfg.Detectors, cfg.adaptiveConfig())
	if err != nil {
		return nil, err
	}
	return &Simulation{
		cfg:        cfg,
		rng:        rng,
		population: population,
		generator:  generator,
		adaptive:   adaptive,
		distances:  make([]int, cfg.Detectors),
	}, nil
}

func (s *Simulation) Population() *detector.Population { return s.population }

func (s *Simulation) GroundTruth() noise.GroundTruth { return s.generator.GroundTruth() }

func (s *Simulation) Adaptive() *decode.Adaptive { return s.adaptive }

// Step runs one trial. The adaptive weights are updated before it returns.
func (s *Simulation) Step() Outcome {
	truth, syndrome := s.generator.Next(s.rng)
	s.distances = decode.Distances(syndrome, s.population, s.distances)

	out := Outcome{
		Shot:     s.shots,
		Truth:    truth,
		Greedy:   decide(s.greedy, s.distances, truth),
		Adaptive: decide(s.adaptive, s.distances, truth),
	}
	s.shots++
	if out.Greedy != truth {
		s.greedyErrors++
	}
	if out.Adaptive != truth {
		s.adaptiveErrors++
	}
	return out
}

// Run executes the configured number of shots. observe may be nil.
func (s *Simulation) Run(observe func(Outcome)) Result {
	for s.shots < s.cfg.Shots {
		out := s.Step()
		if observe != nil {
			observe(out)
		}
	}
	return s.Result()
}

// Result snapshots the counters for the shots run so far.
func (s *Simulation) Result() Result {
	res := Result{
		Config:            s.cfg,
		Shots:             s.shots,
		GreedyErrors:      s.greedyErrors,
		AdaptiveErrors:    s.adaptiveErrors,
		HotMass:           s.generator.GroundTruth().HotMass(),
		DuplicatePatterns: s.population.HasDuplicates(),
	}
	if s.shots > 0 {
		res.GreedyErrorRate = float64(s.greedyErrors) / float64(s.shots)
		res.AdaptiveErrorRate = float64(s.adaptiveErrors) / float64(s.shots)
	}
	return res
}

// Run builds a fresh simulation for cfg and runs it to completion.
func Run(cfg Config) (Result, error) {
	sim, err := NewSimulation(cfg)
	if err != nil {
		return Result{}, err
	}
	return sim.Run(nil), nil
}

func decide(d decode.Decoder, distances []int, truth int) int {
	predicted := d.Decode(distances)
	d.Observe(predicted, truth)
	return predicted
}
