package featurizer

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/diffmetric"
	"github.com/planbiir/cyclefeat/internal/stats"
)

// DeltaQFastChargeConfig tunes the early-prediction feature set.
type DeltaQFastChargeConfig struct {
	// InitPredCycle / MidPredCycle / FinalPredCycle bound the prediction
	// windows (1-based cycle numbers).
	InitPredCycle  int
	MidPredCycle   int
	FinalPredCycle int

	// NNominalCycles is the window over which the nominal capacity is
	// taken as the median discharge capacity.
	NNominalCycles int
}

// DefaultDeltaQFastChargeConfig returns the standard configuration.
func DefaultDeltaQFastChargeConfig() DeltaQFastChargeConfig {
	return DeltaQFastChargeConfig{
		InitPredCycle:  10,
		MidPredCycle:   91,
		FinalPredCycle: 100,
		NNominalCycles: 40,
	}
}

// DeltaQFastCharge computes the early-prediction scalar features built
// around the capacity difference curve between an early and a late cycle
// (the "delta Q" feature family).
type DeltaQFastCharge struct {
	cfg DeltaQFastChargeConfig
}

// NewDeltaQFastCharge builds the extractor, rejecting inconsistent cycle
// windows at construction.
func NewDeltaQFastCharge(cfg DeltaQFastChargeConfig) (*DeltaQFastCharge, error) {
	if cfg.MidPredCycle <= 10 {
		return nil, fmt.Errorf("middle prediction cycle %d must exceed 10", cfg.MidPredCycle)
	}
	if cfg.FinalPredCycle <= cfg.MidPredCycle {
		return nil, fmt.Errorf("final prediction cycle %d must exceed middle prediction cycle %d",
			cfg.FinalPredCycle, cfg.MidPredCycle)
	}
	if cfg.NNominalCycles <= 0 {
		return nil, fmt.Errorf("nominal capacity window must be positive, got %d", cfg.NNominalCycles)
	}
	return &DeltaQFastCharge{cfg: cfg}, nil
}

func (f *DeltaQFastCharge) Name() string { return "DeltaQFastCharge" }

// Validate checks that the run covers the prediction windows.
func (f *DeltaQFastCharge) Validate(dp *cycler.DataPath) (bool, string) {
	summary := dp.StructuredSummary
	if len(summary) == 0 {
		return false, "structured summary is empty"
	}
	if !(summary.MaxCycleIndex() > f.cfg.FinalPredCycle) {
		return false, "Structured summary index max is less than final pred cycle"
	}
	if !(summary.MinCycleIndex() <= f.cfg.InitPredCycle) {
		return false, "Structured summary index min is more than initial pred cycle"
	}
	if len(summary) <= f.cfg.FinalPredCycle-1 {
		return false, "structured summary has fewer rows than the final pred cycle position"
	}
	if len(dp.StructuredData) == 0 {
		return false, "structured time series is empty"
	}
	return true, ""
}

// Compute produces the delta-Q feature row. Cycle positions are positional
// (row order in the summary), matching the historical definition of the
// feature set.
func (f *DeltaQFastCharge) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	iFinal := f.cfg.FinalPredCycle - 1
	iMid := f.cfg.MidPredCycle - 1
	summary := dp.StructuredSummary

	result := NewFeatureResult()

	// Capacity anchors.
	result.SetFloat("discharge_capacity_cycle_2", summary[1].DischargeCapacity)

	maxDiff := math.Inf(-1)
	for _, row := range summary[:iFinal+1] {
		maxDiff = math.Max(maxDiff, row.DischargeCapacity-summary[1].DischargeCapacity)
	}
	result.SetFloat("max_discharge_capacity_difference", maxDiff)
	result.SetFloat("discharge_capacity_cycle_100", summary[iFinal].DischargeCapacity)

	// Thermal history.
	tti := make([]float64, 0, iFinal+1)
	for _, row := range summary[:iFinal+1] {
		tti = append(tti, row.TimeTemperatureIntegrated)
	}
	result.SetFloat("integrated_time_temperature_cycles_1:100", stats.SumSkipNaN(tti))

	durations := make([]float64, 0, 5)
	for _, row := range summary[1:min(6, len(summary))] {
		durations = append(durations, row.ChargeDuration)
	}
	result.SetFloat("charge_time_cycles_1:5", stats.MeanSkipNaN(durations))

	// Delta Q(V) descriptors between the early and final cycle, on the
	// discharge portion. Cells discharged rapidly over a narrow voltage
	// window have no interpolated discharge steps; the descriptors are
	// then NaN rather than an error.
	discharge := dp.StructuredData.WithStepType(cycler.StepDischarge)
	lateVals, _ := discharge.ForCycle(iFinal).MetricValues("discharge_capacity")
	earlyVals, _ := discharge.ForCycle(f.cfg.InitPredCycle - 1).MetricValues("discharge_capacity")

	qdDiff, err := diffmetric.Difference(lateVals, earlyVals)
	if err != nil {
		return nil, fmt.Errorf("delta Q residuals: %w", err)
	}
	if len(qdDiff) > 0 {
		result.SetFloat("abs_min_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(stats.MinSkipNaN(qdDiff))))
		result.SetFloat("abs_mean_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(stats.MeanSkipNaN(qdDiff))))
		result.SetFloat("abs_variance_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(stats.VarSkipNaN(qdDiff))))
		result.SetFloat("abs_skew_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(stats.SkewG1(qdDiff))))
		result.SetFloat("abs_kurtosis_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(stats.ExKurtosisG2(qdDiff))))
		result.SetFloat("abs_first_discharge_capacity_difference_cycles_2:100", math.Log10(math.Abs(qdDiff[0])))
	} else {
		for _, name := range []string{
			"abs_min_discharge_capacity_difference_cycles_2:100",
			"abs_mean_discharge_capacity_difference_cycles_2:100",
			"abs_variance_discharge_capacity_difference_cycles_2:100",
			"abs_skew_discharge_capacity_difference_cycles_2:100",
			"abs_kurtosis_discharge_capacity_difference_cycles_2:100",
			"abs_first_discharge_capacity_difference_cycles_2:100",
		} {
			result.SetFloat(name, math.NaN())
		}
	}

	// Temperature extrema over the prediction window.
	tMax, tMin := math.Inf(-1), math.Inf(1)
	for _, row := range summary[1 : iFinal+1] {
		tMax = math.Max(tMax, row.TemperatureMaximum)
		tMin = math.Min(tMin, row.TemperatureMinimum)
	}
	result.SetFloat("max_temperature_cycles_1:100", tMax)
	result.SetFloat("min_temperature_cycles_1:100", tMin)

	// Linear fade fits over the full and the late window.
	slope, intercept := capacityFit(summary, 1, iFinal)
	result.SetFloat("slope_discharge_capacity_cycle_number_2:100", slope)
	result.SetFloat("intercept_discharge_capacity_cycle_number_2:100", intercept)

	slope, intercept = capacityFit(summary, iMid, iFinal)
	result.SetFloat("slope_discharge_capacity_cycle_number_91:100", slope)
	result.SetFloat("intercept_discharge_capacity_cycle_number_91:100", intercept)

	// Internal resistance trend; zero readings are sensor dropouts.
	ir := make([]float64, 0, iFinal)
	for _, row := range summary[1 : iFinal+1] {
		v := row.DCInternalResistance
		if v == 0 {
			v = math.NaN()
		}
		ir = append(ir, v)
	}
	result.SetFloat("min_internal_resistance_cycles_2:100", stats.MinSkipNaN(ir))
	result.SetFloat("internal_resistance_cycle_2", summary[1].DCInternalResistance)
	result.SetFloat("internal_resistance_difference_cycles_2:100",
		summary[iFinal].DCInternalResistance-summary[1].DCInternalResistance)

	// Nominal capacity as the median over the first cycles.
	caps := make([]float64, 0, f.cfg.NNominalCycles)
	for _, row := range summary[:min(f.cfg.NNominalCycles, len(summary))] {
		caps = append(caps, row.DischargeCapacity)
	}
	result.SetFloat("nominal_capacity_by_median", stats.Median(caps))

	return result, nil
}

// capacityFit fits discharge capacity against position over [from, to].
func capacityFit(summary cycler.Summary, from, to int) (slope, intercept float64) {
	xs := make([]float64, 0, to-from+1)
	ys := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		xs = append(xs, float64(i))
		ys = append(ys, summary[i].DischargeCapacity)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta, alpha
}
