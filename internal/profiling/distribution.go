package profiling

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// ToySummary describes the distribution of toy-experiment counts
type ToySummary struct {
	Count      int
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
	Median     float64
	Q25        float64
	Q75        float64
	Skewness   float64
	Dispersion float64 // variance over mean; 1 for a pure Poisson
}

// SummarizeToys computes summary statistics over toy counts
func SummarizeToys(data []float64) (ToySummary, error) {
	summary := ToySummary{Count: len(data)}
	if len(data) == 0 {
		return summary, stats.EmptyInputErr
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return summary, err
	}

	stdDev, err := stats.StandardDeviation(data)
	if err != nil {
		return summary, err
	}

	min, err := stats.Min(data)
	if err != nil {
		return summary, err
	}

	max, err := stats.Max(data)
	if err != nil {
		return summary, err
	}

	median, err := stats.Median(data)
	if err != nil {
		return summary, err
	}

	// nearest rank stays defined for the two or three toys of a tiny run
	q25, err := stats.PercentileNearestRank(data, 25)
	if err != nil {
		return summary, err
	}

	q75, err := stats.PercentileNearestRank(data, 75)
	if err != nil {
		return summary, err
	}

	summary.Mean = mean
	summary.StdDev = stdDev
	summary.Min = min
	summary.Max = max
	summary.Median = median
	summary.Q25 = q25
	summary.Q75 = q75
	summary.Skewness = calculateSkewness(data, mean, stdDev)
	if mean > 0 {
		summary.Dispersion = stdDev * stdDev / mean
	}

	return summary, nil
}

// String renders the summary on one log line
func (s ToySummary) String() string {
	return fmt.Sprintf("n=%d mean=%.3f sd=%.3f min=%.0f q25=%.1f median=%.1f q75=%.1f max=%.0f skew=%.3f dispersion=%.3f",
		s.Count, s.Mean, s.StdDev, s.Min, s.Q25, s.Median, s.Q75, s.Max, s.Skewness, s.Dispersion)
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0

	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	skewness *= correction

	return skewness
}
