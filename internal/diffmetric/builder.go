// Package diffmetric builds elementwise residual arrays between two
// comparable slices of a cycler time series, the raw material for the
// log-scaled summary statistics.
package diffmetric

import (
	"fmt"
	"math"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

// Difference subtracts the earlier selection from the later one elementwise.
// Both selections must have the same length; interpolated steps are sampled
// on a fixed grid so a mismatch means the selections are not comparable.
func Difference(late, early []float64) ([]float64, error) {
	if len(late) != len(early) {
		return nil, fmt.Errorf("comparison slices differ in length: %d vs %d", len(late), len(early))
	}
	out := make([]float64, len(late))
	for i := range late {
		out[i] = late[i] - early[i]
	}
	return out, nil
}

// DropNonFinite removes NaN and Inf entries, preserving order. Applying it
// twice yields the same result as applying it once.
func DropNonFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// RegularCycleResiduals selects the rows of two regular cycles, optionally
// restricted to one step type, and returns the finite residuals of the metric
// between the later and earlier cycle. Empty selections yield an empty
// residual array; the summary stage then surfaces the numerical error.
func RegularCycleResiduals(ts cycler.TimeSeries, metric string, earlyCycle, lateCycle int, step cycler.StepType) ([]float64, error) {
	early := ts.ForCycle(earlyCycle)
	late := ts.ForCycle(lateCycle)
	if step != "" {
		early = early.WithStepType(step)
		late = late.WithStepType(step)
	}
	return residuals(late, early, metric)
}

// MaskedResiduals returns the finite residuals of the metric between the
// rows selected by lateMask and those selected by earlyMask. Masks must be
// aligned with ts row for row.
func MaskedResiduals(ts cycler.TimeSeries, metric string, earlyMask, lateMask []bool) ([]float64, error) {
	if len(earlyMask) != len(ts) || len(lateMask) != len(ts) {
		return nil, fmt.Errorf("mask length %d/%d does not match series length %d", len(earlyMask), len(lateMask), len(ts))
	}
	var early, late cycler.TimeSeries
	for i, r := range ts {
		if earlyMask[i] {
			early = append(early, r)
		}
		if lateMask[i] {
			late = append(late, r)
		}
	}
	return residuals(late, early, metric)
}

func residuals(late, early cycler.TimeSeries, metric string) ([]float64, error) {
	if len(late) == 0 || len(early) == 0 {
		return []float64{}, nil
	}
	lateVals, ok := late.MetricValues(metric)
	if !ok {
		return nil, fmt.Errorf("unknown metric column %q", metric)
	}
	earlyVals, _ := early.MetricValues(metric)

	diff, err := Difference(lateVals, earlyVals)
	if err != nil {
		return nil, err
	}
	return DropNonFinite(diff), nil
}
