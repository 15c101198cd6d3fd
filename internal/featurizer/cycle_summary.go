package featurizer

import (
	"fmt"
	"math"
	"slices"

	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/diffmetric"
	"github.com/planbiir/cyclefeat/internal/stats"
)

// CycleSummaryStatsConfig tunes the regular-cycle summary statistics
// extractor.
type CycleSummaryStatsConfig struct {
	// CycleCompNum selects the two regular cycles to compare,
	// earlier first.
	CycleCompNum [2]int

	// Statistics is the ordered list of summary statistics to compute
	// per quantity. Empty means all supported statistics.
	Statistics []string
}

// DefaultCycleSummaryStatsConfig returns the standard configuration.
func DefaultCycleSummaryStatsConfig() CycleSummaryStatsConfig {
	return CycleSummaryStatsConfig{
		CycleCompNum: [2]int{10, 100},
		Statistics:   slices.Clone(stats.SupportedStatistics),
	}
}

// CycleSummaryStats computes log-scaled summary statistics over the
// elementwise difference of capacity and energy curves between two regular
// cycles.
type CycleSummaryStats struct {
	cfg CycleSummaryStatsConfig
}

// NewCycleSummaryStats builds the extractor, rejecting unknown statistic
// names at construction.
func NewCycleSummaryStats(cfg CycleSummaryStatsConfig) (*CycleSummaryStats, error) {
	if len(cfg.Statistics) == 0 {
		cfg.Statistics = slices.Clone(stats.SupportedStatistics)
	}
	if err := stats.ValidateStatistics(cfg.Statistics); err != nil {
		return nil, err
	}
	return &CycleSummaryStats{cfg: cfg}, nil
}

func (f *CycleSummaryStats) Name() string { return "CycleSummaryStats" }

// Validate checks that both comparison cycles have data and that every
// required column carries at least one finite value in each of them.
func (f *CycleSummaryStats) Validate(dp *cycler.DataPath) (bool, string) {
	required := []string{"charge_capacity", "discharge_capacity", "charge_energy", "discharge_energy"}
	for _, c := range f.cfg.CycleCompNum {
		cycle := dp.StructuredData.ForCycle(c)
		if len(cycle) == 0 {
			return false, "Length of one or more comparison cycles is zero"
		}
		for _, col := range required {
			values, _ := cycle.MetricValues(col)
			if !anyFinite(values) {
				return false, fmt.Sprintf("Required column not present in all structured data (must have all of: %v)", required)
			}
		}
	}
	return true, ""
}

func anyFinite(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// quantitySelections pairs each reported quantity with the metric column and
// step restriction it is computed from. The discharging_energy quantity is
// read off the charge step; the curves are interpolated per step, and the
// discharge energy accumulated during charge is the comparable trace.
var quantitySelections = []struct {
	quantity string
	metric   string
	step     cycler.StepType
}{
	{"charging_capacity", "charge_capacity", cycler.StepCharge},
	{"discharging_capacity", "discharge_capacity", cycler.StepDischarge},
	{"charging_energy", "charge_energy", cycler.StepCharge},
	{"discharging_energy", "discharge_energy", cycler.StepCharge},
}

// Compute produces one stat column per (statistic, quantity) pair.
func (f *CycleSummaryStats) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	early, late := f.cfg.CycleCompNum[0], f.cfg.CycleCompNum[1]

	result := NewFeatureResult()
	for _, sel := range quantitySelections {
		residuals, err := diffmetric.RegularCycleResiduals(dp.StructuredData, sel.metric, early, late, sel.step)
		if err != nil {
			return nil, fmt.Errorf("%s residuals: %w", sel.quantity, err)
		}
		summary, err := stats.Summarize(residuals, f.cfg.Statistics)
		if err != nil {
			return nil, fmt.Errorf("%s summary: %w", sel.quantity, err)
		}
		for i, stat := range f.cfg.Statistics {
			result.SetFloat(stat+"_"+sel.quantity, summary[i])
		}
	}
	return result, nil
}
