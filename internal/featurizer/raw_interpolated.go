package featurizer

import (
	"fmt"
	"math"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

// RawInterpolatedDataConfig tunes the raw-series extractor.
type RawInterpolatedDataConfig struct {
	// Metrics are the per-step traces to emit. "capacity" and "energy"
	// combine the charge and discharge columns into one trace; "dQdV"
	// sums them; "test_time" is rebased to the step start; any other name
	// is read as a plain column.
	Metrics []string

	// CycleTypes are the diagnostic cycle types to emit traces for.
	CycleTypes []string

	// DiagPositions are the occurrence ordinals per cycle type.
	DiagPositions []int

	// Impute fills missing values (forward/backward fill for capacity and
	// energy, zero-fill otherwise) so every trace is dense.
	Impute bool
}

// DefaultRawInterpolatedDataConfig returns the standard configuration.
func DefaultRawInterpolatedDataConfig() RawInterpolatedDataConfig {
	return RawInterpolatedDataConfig{
		Metrics:       []string{"capacity", "dQdV", "test_time"},
		CycleTypes:    []string{"rpt_0.2C", "rpt_1C", "rpt_2C"},
		DiagPositions: []int{0, 1},
		Impute:        true,
	}
}

// RawInterpolatedData emits the raw interpolated diagnostic traces as
// vector-valued feature columns, one per (position, cycle type, metric,
// step) combination, for image-style model inputs.
type RawInterpolatedData struct {
	cfg RawInterpolatedDataConfig
}

// NewRawInterpolatedData builds the extractor.
func NewRawInterpolatedData(cfg RawInterpolatedDataConfig) (*RawInterpolatedData, error) {
	if len(cfg.Metrics) == 0 || len(cfg.CycleTypes) == 0 || len(cfg.DiagPositions) == 0 {
		return nil, fmt.Errorf("metrics, cycle types and diagnostic positions must all be non-empty")
	}
	return &RawInterpolatedData{cfg: cfg}, nil
}

func (f *RawInterpolatedData) Name() string { return "RawInterpolatedData" }

// Validate checks for diagnostic data.
func (f *RawInterpolatedData) Validate(dp *cycler.DataPath) (bool, string) {
	return diagnosticDataPresent(dp)
}

// Compute lays the traces out as vector columns. Cycle types that do not
// have exactly two steps per cycle, and positions past the available
// occurrences, are skipped: the channel set must stay rectangular across
// runs with differing diagnostic depth.
func (f *RawInterpolatedData) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	result := NewFeatureResult()

	for _, cycleType := range f.cfg.CycleTypes {
		typed := dp.DiagnosticData.OfCycleType(cycleType)
		cycles := typed.CycleIndices()
		if len(cycles) == 0 {
			continue
		}
		if len(typed.ForCycle(cycles[0]).StepIndices()) != 2 {
			continue
		}

		for _, metric := range f.cfg.Metrics {
			for iStep := 0; iStep < 2; iStep++ {
				for _, diagPos := range f.cfg.DiagPositions {
					if diagPos >= len(cycles) {
						continue
					}
					cycle := typed.ForCycle(cycles[diagPos])
					steps := cycle.StepIndices()
					// A later occurrence cut short mid-cycle can have
					// fewer steps than the first one.
					if len(steps) != 2 {
						continue
					}
					var stepRows cycler.TimeSeries
					for _, r := range cycle {
						if r.StepIndex == steps[iStep] {
							stepRows = append(stepRows, r)
						}
					}

					name := fmt.Sprintf("diag_cycle_%d_%s_%s_step_%d", diagPos, cycleType, metric, iStep)
					result.SetVector(name, f.trace(stepRows, metric))
				}
			}
		}
	}
	return result, nil
}

// trace renders one step's samples as a dense series for the given metric.
func (f *RawInterpolatedData) trace(rows cycler.TimeSeries, metric string) []float64 {
	switch metric {
	case "capacity", "energy":
		charge, _ := rows.MetricValues("charge_" + metric)
		discharge, _ := rows.MetricValues("discharge_" + metric)
		chargeMax := maxSkipNaN(charge)
		out := make([]float64, len(rows))
		for i := range out {
			out[i] = math.Min(charge[i], chargeMax-discharge[i])
		}
		if f.cfg.Impute {
			// Capacity and energy vary monotonically with voltage
			// within a step, so fill-forward then fill-backward
			// acts as interpolation.
			forwardFill(out)
			backwardFill(out)
		}
		return out
	case "test_time":
		times, _ := rows.MetricValues("test_time")
		start := minSkipNaN(times)
		out := make([]float64, len(times))
		for i, t := range times {
			out[i] = t - start
		}
		if f.cfg.Impute {
			zeroFill(out)
		}
		return out
	case "dQdV":
		charge, _ := rows.MetricValues("charge_dQdV")
		discharge, _ := rows.MetricValues("discharge_dQdV")
		out := make([]float64, len(rows))
		for i := range out {
			out[i] = charge[i] + discharge[i]
		}
		if f.cfg.Impute {
			zeroFill(out)
		}
		return out
	default:
		out, ok := rows.MetricValues(metric)
		if !ok {
			return nil
		}
		return out
	}
}

func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
		} else {
			last = v
		}
	}
}

func backwardFill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
		} else {
			next = values[i]
		}
	}
}

func zeroFill(values []float64) {
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = 0
		}
	}
}

func maxSkipNaN(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

func minSkipNaN(values []float64) float64 {
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
