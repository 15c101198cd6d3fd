// Package stats computes the log-scaled descriptive statistics shared by the
// feature extractors.
package stats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrUnsupportedStatistic is returned when a requested statistic name is not
// in SupportedStatistics.
var ErrUnsupportedStatistic = errors.New("unsupported statistic")

// SupportedStatistics lists the statistic names Summarize understands, in
// their canonical order.
var SupportedStatistics = []string{"var", "min", "mean", "skew", "kurtosis", "abs", "square"}

// ValidateStatistics rejects unknown statistic names. Used by extractor
// constructors so a bad configuration fails before any data is touched.
func ValidateStatistics(names []string) error {
	for _, name := range names {
		if !supported(name) {
			return fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedStatistic, name, SupportedStatistics)
		}
	}
	return nil
}

func supported(name string) bool {
	for _, s := range SupportedStatistics {
		if s == name {
			return true
		}
	}
	return false
}

// Summarize turns a numeric array (NaNs already removed) into an ordered
// vector of log10-scaled statistics, one per requested name, in the order
// given. A zero or negative magnitude yields -Inf or NaN; callers tolerate
// non-finite entries rather than this function masking them.
func Summarize(values []float64, statistics []string) ([]float64, error) {
	if err := ValidateStatistics(statistics); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("cannot summarize an empty array")
	}

	out := make([]float64, 0, len(statistics))
	for _, name := range statistics {
		var v float64
		switch name {
		case "var":
			v = math.Abs(stat.Variance(values, nil))
		case "min":
			v = math.Abs(floats.Min(values))
		case "mean":
			v = math.Abs(stat.Mean(values, nil))
		case "skew":
			v = math.Abs(SkewG1(values))
		case "kurtosis":
			v = math.Abs(PearsonKurtosis(values))
		case "abs":
			v = sumAbs(values)
		case "square":
			v = floats.Dot(values, values)
		}
		out = append(out, math.Log10(v))
	}
	return out, nil
}

// SkewG1 is the biased Fisher-Pearson skewness coefficient
// g1 = m3 / m2^(3/2) over population central moments.
func SkewG1(values []float64) float64 {
	m2 := stat.Moment(2, values, nil)
	m3 := stat.Moment(3, values, nil)
	return m3 / math.Pow(m2, 1.5)
}

// ExKurtosisG2 is the biased excess kurtosis g2 = m4 / m2^2 - 3 over
// population central moments.
func ExKurtosisG2(values []float64) float64 {
	m2 := stat.Moment(2, values, nil)
	m4 := stat.Moment(4, values, nil)
	return m4/(m2*m2) - 3
}

// PearsonKurtosis is the bias-corrected, non-excess kurtosis: the sample
// excess kurtosis shifted back by +3.
func PearsonKurtosis(values []float64) float64 {
	return stat.ExKurtosis(values, nil) + 3
}

func sumAbs(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += math.Abs(v)
	}
	return sum
}

// Median returns the middle value of the array.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted)%2 == 0 {
		return (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	return sorted[len(sorted)/2]
}

// MeanSkipNaN averages the finite-or-NaN array ignoring NaN entries.
func MeanSkipNaN(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// SumSkipNaN sums the array ignoring NaN entries.
func SumSkipNaN(values []float64) float64 {
	var sum float64
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
		}
	}
	return sum
}

// MinSkipNaN returns the smallest non-NaN entry.
func MinSkipNaN(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v < m {
			m = v
		}
	}
	return m
}

// VarSkipNaN is the population variance ignoring NaN entries.
func VarSkipNaN(values []float64) float64 {
	mean := MeanSkipNaN(values)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	var sum float64
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			d := v - mean
			sum += d * d
			n++
		}
	}
	return sum / float64(n)
}
