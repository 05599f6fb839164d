package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"baqec/internal/experiment"
	"baqec/internal/repertoire"
	"baqec/internal/stats"
	"baqec/internal/storage"
	baqecapi "baqec/pkg/baqec"
)

const (
	reportsDir      = "reports"
	defaultDataPath = "data/sample_cdr3.csv"
	demoShots       = 20_000
)

var logger = newLogger(os.Getenv("BAQEC_LOG_LEVEL"))

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "demo":
		return runDemo(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "sweep":
		return runSweep(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "sweeps":
		return runSweeps(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "cdr3-stats":
		return runCDR3Stats(ctx, args[1:])
	case "clonal":
		return runClonal(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With(slog.String("component", "baqecctl"))
}

func runDemo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	flags := addRunFlags(fs, demoShots)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.resolve(fs, demoShots)
	if err != nil {
		return err
	}

	policy, err := experiment.ParseSeedPolicy(cfg.SeedPolicy)
	if err != nil {
		return err
	}
	started := time.Now()
	results, err := experiment.Sweep(ctx, experiment.SweepRequest{
		Base:       cfg.Experiment,
		ErrorRates: cfg.ErrorRates,
		SeedPolicy: policy,
		Workers:    cfg.Workers,
	})
	if err != nil {
		return err
	}
	logger.Debug("demo finished",
		slog.Int("points", len(results)),
		slog.Duration("duration", time.Since(started)),
	)

	fmt.Println("Bio-adaptive QEC toy decoder demo")
	fmt.Println("---------------------------------")
	fmt.Printf("Synthetic benchmark: %d detectors x %d bits, %s shots per point, alpha=%.2f\n\n",
		cfg.Experiment.Detectors,
		cfg.Experiment.SyndromeLen,
		humanize.Comma(int64(cfg.Experiment.Shots)),
		cfg.Experiment.Alpha,
	)
	printRateTable(results)
	return nil
}

func runRun(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	flags := addRunFlags(fs, experiment.DefaultConfig().Shots)
	jsonOut := fs.Bool("json", false, "emit result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.resolve(fs, experiment.DefaultConfig().Shots)
	if err != nil {
		return err
	}

	result, err := experiment.Run(cfg.Experiment)
	if err != nil {
		return err
	}
	if result.DuplicatePatterns {
		logger.Warn("population contains duplicate patterns; greedy ties are unavoidable",
			slog.Int("detectors", cfg.Experiment.Detectors),
			slog.Int("syndrome_len", cfg.Experiment.SyndromeLen),
		)
	}
	if *jsonOut {
		return writeJSONStdout(result)
	}

	fmt.Printf("shots=%s p=%.4f alpha=%.2f seed=%d hot_mass=%.4f\n",
		humanize.Comma(int64(result.Shots)),
		cfg.Experiment.ErrorRate,
		cfg.Experiment.Alpha,
		cfg.Experiment.Seed,
		result.HotMass,
	)
	fmt.Printf("greedy_errors=%s greedy_rate=%.4f\n", humanize.Comma(int64(result.GreedyErrors)), result.GreedyErrorRate)
	fmt.Printf("adaptive_errors=%s adaptive_rate=%.4f\n", humanize.Comma(int64(result.AdaptiveErrors)), result.AdaptiveErrorRate)
	fmt.Printf("improvement=%s\n", formatImprovement(result.Improvement()))
	return nil
}

func runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	flags := addRunFlags(fs, experiment.DefaultConfig().Shots)
	sweepID := fs.String("id", "", "explicit sweep id (random uuid when empty)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "baqec.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.resolve(fs, experiment.DefaultConfig().Shots)
	if err != nil {
		return err
	}

	client, err := baqecapi.New(baqecapi.Options{
		StoreKind:  *storeKind,
		DBPath:     *dbPath,
		ReportsDir: reportsDir,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Sweep(ctx, baqecapi.SweepRequest{
		ID:         *sweepID,
		Notes:      cfg.Notes,
		Base:       cfg.Experiment,
		ErrorRates: cfg.ErrorRates,
		SeedPolicy: cfg.SeedPolicy,
		Workers:    cfg.Workers,
		Args:       append([]string{"sweep"}, args...),
	})
	if err != nil {
		return err
	}
	logger.Info("sweep archived",
		slog.String("sweep_id", summary.ID),
		slog.String("store", *storeKind),
		slog.String("reports", summary.ReportsDir),
	)

	fmt.Printf("sweep_id=%s points=%d shots=%s\n", summary.ID, len(summary.Results), humanize.Comma(int64(cfg.Experiment.Shots)))
	printRateTable(summary.Results)
	fmt.Printf("reports=%s\n", summary.ReportsDir)
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	flags := addRunFlags(fs, experiment.DefaultConfig().Shots)
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := flags.resolve(fs, experiment.DefaultConfig().Shots)
	if err != nil {
		return err
	}

	summary, err := experiment.Repeat(ctx, cfg.Experiment, cfg.Repeats, cfg.Workers)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSONStdout(summary)
	}

	fmt.Printf("runs=%d shots_per_run=%s p=%.4f alpha=%.2f\n",
		len(summary.Runs),
		humanize.Comma(int64(cfg.Experiment.Shots)),
		cfg.Experiment.ErrorRate,
		cfg.Experiment.Alpha,
	)
	fmt.Printf("greedy_mean=%.5f greedy_std=%.5f\n", summary.GreedyMean, summary.GreedyStd)
	fmt.Printf("adaptive_mean=%.5f adaptive_std=%.5f\n", summary.AdaptiveMean, summary.AdaptiveStd)
	fmt.Printf("adaptive_wins=%d win_fraction=%.3f\n", summary.AdaptiveWins, summary.WinFraction)
	return nil
}

func runSweeps(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweeps", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max sweeps to list")
	jsonOut := fs.Bool("json", false, "emit sweeps list as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "baqec.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := baqecapi.New(baqecapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ReportsDir: reportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Sweeps(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSONStdout(items)
	}
	if len(items) == 0 {
		fmt.Println("no sweeps found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("sweep_id=%s created=%s points=%d shots=%s detectors=%d syndrome_len=%d alpha=%.2f seed_policy=%s\n",
			item.ID,
			humanizeCreatedAt(item.CreatedAt),
			len(item.Points),
			humanize.Comma(int64(item.Shots)),
			item.Detectors,
			item.SyndromeLen,
			item.Alpha,
			item.SeedPolicy,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	sweepID := fs.String("id", "", "sweep id")
	latest := fs.Bool("latest", false, "show the most recent sweep")
	jsonOut := fs.Bool("json", false, "emit sweep as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "baqec.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sweepID != "" && *latest {
		return errors.New("use either --id or --latest")
	}
	if *sweepID == "" && !*latest {
		return errors.New("show requires --id or --latest")
	}

	client, err := baqecapi.New(baqecapi.Options{StoreKind: *storeKind, DBPath: *dbPath, ReportsDir: reportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	id := *sweepID
	if *latest {
		items, err := client.Sweeps(ctx, 1)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return errors.New("no sweeps available")
		}
		id = items[0].ID
	}
	item, err := client.SweepByID(ctx, id)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSONStdout(item)
	}

	fmt.Printf("sweep_id=%s created_at=%s shots=%s detectors=%d syndrome_len=%d alpha=%.2f seed_policy=%s\n",
		item.ID,
		item.CreatedAt,
		humanize.Comma(int64(item.Shots)),
		item.Detectors,
		item.SyndromeLen,
		item.Alpha,
		item.SeedPolicy,
	)
	if item.Notes != "" {
		fmt.Printf("notes=%s\n", item.Notes)
	}
	fmt.Printf("%12s | %10s | %12s | %11s\n", "p (physical)", "Greedy P_L", "Adaptive P_L", "Improvement")
	fmt.Println(strings.Repeat("-", 54))
	for _, point := range item.Points {
		fmt.Printf("%11.3f%% | %10.4f | %12.4f | %11s\n",
			point.ErrorRate*100,
			point.GreedyErrorRate,
			point.AdaptiveErrorRate,
			formatImprovement(improvement(point.GreedyErrorRate, point.AdaptiveErrorRate)),
		)
	}
	return nil
}

func runCDR3Stats(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("cdr3-stats", flag.ContinueOnError)
	dataPath := fs.String("data", defaultDataPath, "CDR3 CSV path with a cdr3aa column (generated when missing)")
	seed := fs.Int64("seed", 0, "rng seed")
	maxPairs := fs.Int("max-pairs", repertoire.DefaultMaxPairs, "max random pairs to sample")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	sequences, err := loadSequences(*dataPath, rng)
	if err != nil {
		return err
	}
	summary, err := repertoire.DistanceStats(rng, sequences, *maxPairs)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSONStdout(summary)
	}

	fmt.Printf("Using %d sequences of length %d aa for distance stats (%s pairs).\n",
		summary.Sequences, summary.Length, humanize.Comma(int64(summary.Pairs)))
	fmt.Println()
	fmt.Println("Hamming distance statistics (same-length CDR3 pairs):")
	fmt.Printf("- Mean:      %.2f\n", summary.Mean)
	fmt.Printf("- Std dev:   %.2f\n", summary.Std)
	fmt.Printf("- Min:       %.0f\n", summary.Min)
	fmt.Printf("- Max:       %.0f\n", summary.Max)
	fmt.Printf("- 1th pct:   %.0f\n", summary.P1)
	fmt.Printf("- 5th pct:   %.0f\n", summary.P5)
	fmt.Printf("- 10th pct:  %.0f\n", summary.P10)
	fmt.Printf("\nApproximate biological code distance (1st percentile): d ~ %.0f\n", summary.ApproxCodeMin)
	return nil
}

func runClonal(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("clonal", flag.ContinueOnError)
	dataPath := fs.String("data", defaultDataPath, "CDR3 CSV path with a cdr3aa column (generated when missing)")
	seed := fs.Int64("seed", 0, "rng seed")
	rounds := fs.Int("rounds", repertoire.DefaultExpansionRounds, "expansion rounds")
	gamma := fs.Float64("gamma", repertoire.DefaultExpansionGamma, "affinity-driven growth strength")
	outPath := fs.String("out", "results/clonal_expansion.json", "rank plot output path (empty disables)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	sequences, err := loadSequences(*dataPath, rng)
	if err != nil {
		return err
	}
	subset, length := repertoire.DominantLengthSubset(sequences)
	fmt.Printf("Using %d sequences of length %d aa for clonal benchmark.\n", len(subset), length)

	expansion, err := repertoire.SimulateClonalExpansion(rng, subset, *rounds, *gamma)
	if err != nil {
		return err
	}
	concentration := repertoire.Concentration(expansion.Sizes)

	fmt.Println()
	fmt.Println("Final clone size concentration:")
	fmt.Printf("- Top 1%% of clones carry   ~%5.1f%% of total mass\n", concentration.Top1*100)
	fmt.Printf("- Top 5%% of clones carry   ~%5.1f%% of total mass\n", concentration.Top5*100)
	fmt.Printf("- Top 10%% of clones carry  ~%5.1f%% of total mass\n", concentration.Top10*100)

	if *outPath != "" {
		if err := stats.WriteRankSeries(*outPath, concentration.Sorted, concentration.Cumulative); err != nil {
			return err
		}
		fmt.Printf("Saved clonal expansion series to %s\n", *outPath)
	}
	return nil
}

func loadSequences(path string, rng *rand.Rand) ([]string, error) {
	sequences, generated, err := repertoire.EnsureDataset(path, rng)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Info("no dataset found; generated synthetic CDR3 sequences",
			slog.String("path", path),
			slog.Int("sequences", len(sequences)),
		)
	} else {
		logger.Info("loaded CDR3 sequences",
			slog.String("path", path),
			slog.Int("sequences", len(sequences)),
		)
	}
	return sequences, nil
}

func printRateTable(results []experiment.Result) {
	fmt.Printf("%12s | %10s | %12s | %11s\n", "p (physical)", "Greedy P_L", "Adaptive P_L", "Improvement")
	fmt.Println(strings.Repeat("-", 54))
	for _, r := range results {
		fmt.Printf("%11.3f%% | %10.4f | %12.4f | %11s\n",
			r.Config.ErrorRate*100,
			r.GreedyErrorRate,
			r.AdaptiveErrorRate,
			formatImprovement(r.Improvement()),
		)
	}
}

func improvement(greedy, adaptive float64) float64 {
	return experiment.Result{GreedyErrorRate: greedy, AdaptiveErrorRate: adaptive}.Improvement()
}

func formatImprovement(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2fx", v)
}

func humanizeCreatedAt(createdAt string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return createdAt
	}
	return humanize.Time(t)
}

func writeJSONStdout(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: baqecctl <demo|run|sweep|compare|sweeps|show|cdr3-stats|clonal> [flags]", msg)
}
