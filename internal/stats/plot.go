package stats

// PlotPoint is one sample of a series handed to a plotting sink.
type PlotPoint struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// ErrorRatePoint is the per-rate input of BuildErrorRateSeries.
type ErrorRatePoint struct {
	PhysicalErrorRate float64 `json:"physical_error_rate"`
	Greedy            float64 `json:"greedy"`
	Adaptive          float64 `json:"adaptive"`
}

// ErrorRateSeries holds the logical error rate curves of both decoders
// against the physical error rate.
type ErrorRateSeries struct {
	PhysicalErrorRates []float64 `json:"physical_error_rates"`
	Greedy             []float64 `json:"greedy"`
	Adaptive           []float64 `json:"adaptive"`
}

func BuildErrorRateSeries(points []ErrorRatePoint) ErrorRateSeries {
	series := ErrorRateSeries{
		PhysicalErrorRates: make([]float64, 0, len(points)),
		Greedy:             make([]float64, 0, len(points)),
		Adaptive:           make([]float64, 0, len(points)),
	}
	for _, point := range points {
		series.PhysicalErrorRates = append(series.PhysicalErrorRates, point.PhysicalErrorRate)
		series.Greedy = append(series.Greedy, point.Greedy)
		series.Adaptive = append(series.Adaptive, point.Adaptive)
	}
	return series
}

// BuildRankPlot turns a descending series into rank-indexed points starting
// at rank 1, the shape used for clone-size and cumulative-mass plots.
func BuildRankPlot(values []float64) []PlotPoint {
	points := make([]PlotPoint, 0, len(values))
	for i, value := range values {
		points = append(points, PlotPoint{Index: i + 1, Value: value})
	}
	return points
}

// RankSeries pairs the sorted clone sizes with their cumulative mass, both
// indexed by rank.
type RankSeries struct {
	Sizes      []PlotPoint `json:"sizes"`
	Cumulative []PlotPoint `json:"cumulative"`
}

func BuildRankSeries(sorted, cumulative []float64) RankSeries {
	return RankSeries{
		Sizes:      BuildRankPlot(sorted),
		Cumulative: BuildRankPlot(cumulative),
	}
}
