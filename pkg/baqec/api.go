package baqec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"baqec/internal/experiment"
	"baqec/internal/model"
	"baqec/internal/stats"
	"baqec/internal/storage"
)

const (
	defaultReportsDir = "reports"
	defaultDBPath     = "baqec.db"
	defaultListLimit  = 20
)

type Options struct {
	StoreKind  string
	DBPath     string
	ReportsDir string
}

type Client struct {
	store      storage.Store
	reportsDir string
}

// Config mirrors experiment.Config so callers outside the module can build
// runs without importing internal packages.
type Config = experiment.Config

type Result = experiment.Result

type RepeatSummary = experiment.RepeatSummary

func DefaultConfig() Config { return experiment.DefaultConfig() }

type SweepRequest struct {
	ID         string
	Notes      string
	Base       Config
	ErrorRates []float64
	SeedPolicy string
	Workers    int
	// Args is recorded verbatim in the report, usually the CLI invocation.
	Args []string
}

type SweepSummary struct {
	ID         string
	CreatedAt  string
	ReportsDir string
	Results    []Result
}

type SweepItem struct {
	ID          string
	CreatedAt   string
	Notes       string
	SeedPolicy  string
	Shots       int
	Detectors   int
	SyndromeLen int
	Alpha       float64
	Points      []model.SweepPoint
}

type CompareRequest struct {
	Config  Config
	Repeats int
	Workers int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	reportsDir := opts.ReportsDir
	if reportsDir == "" {
		reportsDir = defaultReportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, reportsDir: reportsDir}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run executes a single configuration. Nothing is persisted. ctx is checked
// once before the run starts; a run in progress is not interrupted.
func (c *Client) Run(ctx context.Context, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return experiment.Run(cfg)
}

func (c *Client) Compare(ctx context.Context, req CompareRequest) (RepeatSummary, error) {
	if req.Repeats <= 0 {
		req.Repeats = 10
	}
	return experiment.Repeat(ctx, req.Config, req.Repeats, req.Workers)
}

// Sweep runs one simulation per error rate, archives the record in the store
// and writes the report artifacts under the reports directory.
func (c *Client) Sweep(ctx context.Context, req SweepRequest) (SweepSummary, error) {
	if len(req.ErrorRates) == 0 {
		req.ErrorRates = experiment.DefaultErrorRates()
	}
	policy, err := experiment.ParseSeedPolicy(req.SeedPolicy)
	if err != nil {
		return SweepSummary{}, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	results, err := experiment.Sweep(ctx, experiment.SweepRequest{
		Base:       req.Base,
		ErrorRates: req.ErrorRates,
		SeedPolicy: policy,
		Workers:    req.Workers,
	})
	if err != nil {
		return SweepSummary{}, err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	record := storage.Stamp(model.SweepRecord{
		ID:           req.ID,
		CreatedAtUTC: createdAt,
		Notes:        req.Notes,
		SeedPolicy:   string(policy),
		Base:         toModelConfig(req.Base),
		Points:       toSweepPoints(results),
	})

	if err := c.store.Init(ctx); err != nil {
		return SweepSummary{}, err
	}
	if err := c.store.SaveSweep(ctx, record); err != nil {
		return SweepSummary{}, fmt.Errorf("save sweep %s: %w", record.ID, err)
	}

	dir, err := stats.WriteSweepReport(c.reportsDir, toReport(record, req.Args))
	if err != nil {
		return SweepSummary{}, fmt.Errorf("write sweep report %s: %w", record.ID, err)
	}

	return SweepSummary{
		ID:         record.ID,
		CreatedAt:  createdAt,
		ReportsDir: dir,
		Results:    results,
	}, nil
}

// Sweeps lists archived sweeps, newest first. An empty store falls back to
// the report directory, which is all a memory-backed process can see of
// earlier runs.
func (c *Client) Sweeps(ctx context.Context, limit int) ([]SweepItem, error) {
	if limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListSweeps(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]SweepItem, 0, len(records))
	if len(records) > 0 {
		for _, record := range records {
			out = append(out, toSweepItem(record))
		}
	} else {
		reports, err := stats.ListSweepReports(c.reportsDir)
		if err != nil {
			return nil, err
		}
		for _, report := range reports {
			out = append(out, reportToSweepItem(report))
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) SweepByID(ctx context.Context, id string) (SweepItem, error) {
	if id == "" {
		return SweepItem{}, errors.New("sweep id is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return SweepItem{}, err
	}
	record, ok, err := c.store.GetSweep(ctx, id)
	if err != nil {
		return SweepItem{}, err
	}
	if ok {
		return toSweepItem(record), nil
	}
	report, ok, err := stats.ReadSweepReport(c.reportsDir, id)
	if err != nil {
		return SweepItem{}, err
	}
	if !ok {
		return SweepItem{}, fmt.Errorf("sweep not found: %s", id)
	}
	return reportToSweepItem(report), nil
}

func toModelConfig(cfg Config) model.ExperimentConfig {
	return model.ExperimentConfig{
		Detectors:   cfg.Detectors,
		SyndromeLen: cfg.SyndromeLen,
		Shots:       cfg.Shots,
		ErrorRate:   cfg.ErrorRate,
		Alpha:       cfg.Alpha,
		Seed:        cfg.Seed,
		HotCount:    cfg.HotCount,
		HotBoost:    cfg.HotBoost,
		Decay:       cfg.Decay,
		Growth:      cfg.Growth,
	}
}

func toSweepPoints(results []Result) []model.SweepPoint {
	points := make([]model.SweepPoint, 0, len(results))
	for _, r := range results {
		points = append(points, model.SweepPoint{
			ErrorRate:         r.Config.ErrorRate,
			Seed:              r.Config.Seed,
			Shots:             r.Shots,
			GreedyErrors:      r.GreedyErrors,
			AdaptiveErrors:    r.AdaptiveErrors,
			GreedyErrorRate:   r.GreedyErrorRate,
			AdaptiveErrorRate: r.AdaptiveErrorRate,
			HotMass:           r.HotMass,
		})
	}
	return points
}

func toReport(record model.SweepRecord, args []string) stats.SweepReport {
	points := make([]stats.ErrorRatePoint, 0, len(record.Points))
	for _, p := range record.Points {
		points = append(points, stats.ErrorRatePoint{
			PhysicalErrorRate: p.ErrorRate,
			Greedy:            p.GreedyErrorRate,
			Adaptive:          p.AdaptiveErrorRate,
		})
	}
	return stats.SweepReport{
		ID:          record.ID,
		Notes:       record.Notes,
		GeneratedAt: record.CreatedAtUTC,
		Shots:       record.Base.Shots,
		Detectors:   record.Base.Detectors,
		SyndromeLen: record.Base.SyndromeLen,
		Alpha:       record.Base.Alpha,
		SeedPolicy:  record.SeedPolicy,
		Args:        append([]string(nil), args...),
		Points:      points,
	}
}

func toSweepItem(record model.SweepRecord) SweepItem {
	return SweepItem{
		ID:          record.ID,
		CreatedAt:   record.CreatedAtUTC,
		Notes:       record.Notes,
		SeedPolicy:  record.SeedPolicy,
		Shots:       record.Base.Shots,
		Detectors:   record.Base.Detectors,
		SyndromeLen: record.Base.SyndromeLen,
		Alpha:       record.Base.Alpha,
		Points:      append([]model.SweepPoint(nil), record.Points...),
	}
}

// reportToSweepItem recovers what a report keeps; per-point seeds, error
// counts and hot mass are not part of the report.
func reportToSweepItem(report stats.SweepReport) SweepItem {
	points := make([]model.SweepPoint, 0, len(report.Points))
	for _, p := range report.Points {
		points = append(points, model.SweepPoint{
			ErrorRate:         p.PhysicalErrorRate,
			Shots:             report.Shots,
			GreedyErrorRate:   p.Greedy,
			AdaptiveErrorRate: p.Adaptive,
		})
	}
	return SweepItem{
		ID:          report.ID,
		CreatedAt:   report.GeneratedAt,
		Notes:       report.Notes,
		SeedPolicy:  report.SeedPolicy,
		Shots:       report.Shots,
		Detectors:   report.Detectors,
		SyndromeLen: report.SyndromeLen,
		Alpha:       report.Alpha,
		Points:      points,
	}
}
