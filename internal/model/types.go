package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ExperimentConfig is the persisted form of one decoding run configuration.
type ExperimentConfig struct {
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

// SweepPoint is the outcome of one physical error rate in a sweep.
type SweepPoint struct {
	ErrorRate         float64 `json:"error_rate"`
	Seed              int64   `json:"seed"`
	Shots             int     `json:"shots"`
	GreedyErrors      int     `json:"greedy_errors"`
	AdaptiveErrors    int     `json:"adaptive_errors"`
	GreedyErrorRate   float64 `json:"greedy_error_rate"`
	AdaptiveErrorRate float64 `json:"adaptive_error_rate"`
	HotMass           float64 `json:"hot_mass"`
}

type SweepRecord struct {
	VersionedRecord
	ID           string           `json:"id"`
	CreatedAtUTC string           `json:"created_at_utc"`
	Notes        string           `json:"notes,omitempty"`
	SeedPolicy   string           `json:"seed_policy"`
	Base         ExperimentConfig `json:"base"`
	Points       []SweepPoint     `json:"points"`
}
