package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const sweepReportsDir = "sweeps"

type SweepReport struct {
	ID          string           `json:"id"`
	Notes       string           `json:"notes,omitempty"`
	GeneratedAt string           `json:"generated_at_utc"`
	Shots       int              `json:"shots"`
	Detectors   int              `json:"detectors"`
	SyndromeLen int              `json:"syndrome_len"`
	Alpha       float64          `json:"alpha"`
	SeedPolicy  string           `json:"seed_policy"`
	Args        []string         `json:"args,omitempty"`
	Points      []ErrorRatePoint `json:"points"`
}

// WriteSweepReport writes the report, its plot series and a CSV table under
// <baseDir>/sweeps/<id>/ and returns that directory.
func WriteSweepReport(baseDir string, report SweepReport) (string, error) {
	if report.ID == "" {
		return "", fmt.Errorf("report id is required")
	}
	dir := filepath.Join(baseDir, sweepReportsDir, report.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if report.GeneratedAt == "" {
		report.GeneratedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := writeJSON(filepath.Join(dir, "sweep.json"), report); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "series.json"), BuildErrorRateSeries(report.Points)); err != nil {
		return "", err
	}
	if err := writeErrorRateCSV(filepath.Join(dir, "error_rates.csv"), report.Points); err != nil {
		return "", err
	}
	return dir, nil
}

func ReadSweepReport(baseDir, id string) (SweepReport, bool, error) {
	if id == "" {
		return SweepReport{}, false, fmt.Errorf("report id is required")
	}
	data, err := os.ReadFile(filepath.Join(baseDir, sweepReportsDir, id, "sweep.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return SweepReport{}, false, nil
		}
		return SweepReport{}, false, err
	}
	var report SweepReport
	if err := json.Unmarshal(data, &report); err != nil {
		return SweepReport{}, false, err
	}
	return report, true, nil
}

// ListSweepReports returns every readable report, newest first.
func ListSweepReports(baseDir string) ([]SweepReport, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, sweepReportsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []SweepReport{}, nil
		}
		return nil, err
	}
	reports := make([]SweepReport, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		report, ok, err := ReadSweepReport(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			reports = append(reports, report)
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].GeneratedAt == reports[j].GeneratedAt {
			return reports[i].ID < reports[j].ID
		}
		return reports[i].GeneratedAt > reports[j].GeneratedAt
	})
	return reports, nil
}

// WriteRankSeries writes the clone-size rank plot as JSON to path, creating
// parent directories.
func WriteRankSeries(path string, sorted, cumulative []float64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, BuildRankSeries(sorted, cumulative))
}

func writeErrorRateCSV(path string, points []ErrorRatePoint) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"physical_error_rate", "greedy", "adaptive"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			strconv.FormatFloat(point.PhysicalErrorRate, 'f', -1, 64),
			strconv.FormatFloat(point.Greedy, 'f', -1, 64),
			strconv.FormatFloat(point.Adaptive, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
