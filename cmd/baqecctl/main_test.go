package main

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"baqec/internal/repertoire"
	"baqec/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected usage error for missing command")
	}
	err := run(context.Background(), []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	if err := run(context.Background(), []string{"run", "--shots", "0"}); err == nil {
		t.Fatal("expected error for zero shots")
	}
	if err := run(context.Background(), []string{"run", "--p", "1.5"}); err == nil {
		t.Fatal("expected error for error rate above one")
	}
}

func TestDemoAndRunCommands(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()
	if err := run(ctx, []string{"demo", "--shots", "200", "--detectors", "16", "--syndrome-len", "12", "--workers", "2"}); err != nil {
		t.Fatalf("demo: %v", err)
	}
	if err := run(ctx, []string{"run", "--shots", "200", "--detectors", "16", "--json"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := run(ctx, []string{"compare", "--shots", "100", "--detectors", "16", "--repeats", "2"}); err != nil {
		t.Fatalf("compare: %v", err)
	}
}

func TestSweepCommandWritesReports(t *testing.T) {
	chdirTemp(t)
	ctx := context.Background()
	args := []string{
		"sweep",
		"--store", "memory",
		"--id", "cli-sweep",
		"--shots", "200",
		"--detectors", "16",
		"--syndrome-len", "12",
		"--rates", "0.01,0.05",
		"--notes", "cli",
	}
	if err := run(ctx, args); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	report, ok, err := stats.ReadSweepReport(reportsDir, "cli-sweep")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !ok {
		t.Fatal("expected sweep report")
	}
	if len(report.Points) != 2 || report.Points[1].PhysicalErrorRate != 0.05 || report.Notes != "cli" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Args) == 0 || report.Args[0] != "sweep" {
		t.Fatalf("expected invocation args in report: %+v", report.Args)
	}

	if err := run(ctx, []string{"sweeps", "--store", "memory"}); err != nil {
		t.Fatalf("sweeps: %v", err)
	}
	if err := run(ctx, []string{"show", "--store", "memory", "--latest"}); err != nil {
		t.Fatalf("show latest: %v", err)
	}
	if err := run(ctx, []string{"show", "--store", "memory", "--id", "cli-sweep", "--json"}); err != nil {
		t.Fatalf("show id: %v", err)
	}
	if err := run(ctx, []string{"show", "--store", "memory", "--id", "missing"}); err == nil {
		t.Fatal("expected error for unknown sweep")
	}
	if err := run(ctx, []string{"show", "--store", "memory"}); err == nil {
		t.Fatal("expected error without --id or --latest")
	}
}

func TestRepertoireCommands(t *testing.T) {
	workdir := chdirTemp(t)
	ctx := context.Background()

	if err := run(ctx, []string{"cdr3-stats", "--seed", "3", "--max-pairs", "500"}); err != nil {
		t.Fatalf("cdr3-stats: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workdir, defaultDataPath)); err != nil {
		t.Fatalf("expected generated dataset: %v", err)
	}

	outPath := filepath.Join("results", "clonal.json")
	if err := run(ctx, []string{"clonal", "--seed", "3", "--out", outPath}); err != nil {
		t.Fatalf("clonal: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read clonal series: %v", err)
	}
	var series stats.RankSeries
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatalf("decode clonal series: %v", err)
	}
	if len(series.Sizes) == 0 || len(series.Sizes) != len(series.Cumulative) {
		t.Fatalf("unexpected series lengths: %d/%d", len(series.Sizes), len(series.Cumulative))
	}
	last := series.Cumulative[len(series.Cumulative)-1].Value
	if math.Abs(last-1) > 1e-9 {
		t.Fatalf("cumulative mass should end at 1, got %v", last)
	}
}

func TestRepertoireCommandsReadExistingDataset(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join("data", "custom.csv")
	if err := os.MkdirAll("data", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	if err := repertoire.WriteCSV(file, []string{"CASSL", "CASSF", "CATSL", "CASSLGQ"}); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close dataset: %v", err)
	}
	if err := run(context.Background(), []string{"cdr3-stats", "--data", path, "--json"}); err != nil {
		t.Fatalf("cdr3-stats: %v", err)
	}
}

func TestFormatImprovement(t *testing.T) {
	if got := formatImprovement(math.Inf(1)); got != "inf" {
		t.Fatalf("unexpected infinite format: %s", got)
	}
	if got := formatImprovement(2); got != "2.00x" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := improvement(0.1, 0.05); got != 2 {
		t.Fatalf("unexpected improvement: %v", got)
	}
	if got := humanizeCreatedAt("not-a-time"); got != "not-a-time" {
		t.Fatalf("unparseable timestamps should pass through, got %s", got)
	}
}
