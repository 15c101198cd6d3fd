package featurizer

import (
	"fmt"
	"slices"

	"github.com/planbiir/cyclefeat/internal/align"
	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/diffmetric"
	"github.com/planbiir/cyclefeat/internal/protocol"
	"github.com/planbiir/cyclefeat/internal/stats"
)

// DiagnosticSummaryStatsConfig tunes the diagnostic-cycle summary statistics
// extractor.
type DiagnosticSummaryStatsConfig struct {
	// TestTimeFilterSec / CycleIndexFilter identify trailing "final"
	// diagnostic artifacts: rows past the time filter claiming a cycle
	// index below the cycle filter are dropped before use.
	TestTimeFilterSec float64
	CycleIndexFilter  int

	// DiagnosticCycleType is the cycle type whose occurrences are compared.
	DiagnosticCycleType string

	// DiagPosList selects the two occurrences (0-based ordinals) to
	// compare, earlier first.
	DiagPosList [2]int

	// Statistics is the ordered statistic list per quantity. Empty means
	// all supported statistics.
	Statistics []string

	// SummaryDiffCycleTypes are the cycle types included in the relative
	// summary-difference block. Types without enough occurrences are
	// skipped.
	SummaryDiffCycleTypes []string

	// ParametersDir is the charging-protocol parameter file store.
	ParametersDir string
}

// DefaultDiagnosticSummaryStatsConfig returns the standard configuration.
func DefaultDiagnosticSummaryStatsConfig() DiagnosticSummaryStatsConfig {
	return DiagnosticSummaryStatsConfig{
		TestTimeFilterSec:     1_000_000,
		CycleIndexFilter:      6,
		DiagnosticCycleType:   "rpt_0.2C",
		DiagPosList:           [2]int{0, 1},
		Statistics:            slices.Clone(stats.SupportedStatistics),
		SummaryDiffCycleTypes: []string{"rpt_0.2C", "rpt_1C", "rpt_2C"},
	}
}

// DiagnosticSummaryStats computes log-scaled summary statistics over the
// elementwise difference of capacity, energy and dQdV curves between two
// occurrences of one diagnostic cycle type, plus relative differences of the
// per-occurrence aggregates across the reference-performance cycle types.
type DiagnosticSummaryStats struct {
	cfg    DiagnosticSummaryStatsConfig
	lookup protocol.LookupFunc
}

// NewDiagnosticSummaryStats builds the extractor. A nil lookup falls back to
// the file-backed protocol lookup.
func NewDiagnosticSummaryStats(cfg DiagnosticSummaryStatsConfig, lookup protocol.LookupFunc) (*DiagnosticSummaryStats, error) {
	if len(cfg.Statistics) == 0 {
		cfg.Statistics = slices.Clone(stats.SupportedStatistics)
	}
	if err := stats.ValidateStatistics(cfg.Statistics); err != nil {
		return nil, err
	}
	if cfg.DiagnosticCycleType == "" {
		return nil, fmt.Errorf("diagnostic cycle type must be set")
	}
	if lookup == nil {
		lookup = protocol.Lookup
	}
	return &DiagnosticSummaryStats{cfg: cfg, lookup: lookup}, nil
}

func (f *DiagnosticSummaryStats) Name() string { return "DiagnosticSummaryStats" }

// Validate checks for diagnostic data and enough occurrences of the
// configured cycle type to cover both comparison positions.
func (f *DiagnosticSummaryStats) Validate(dp *cycler.DataPath) (bool, string) {
	if ok, reason := diagnosticDataPresent(dp); !ok {
		return false, reason
	}
	need := max(f.cfg.DiagPosList[0], f.cfg.DiagPosList[1]) + 1
	typed := dp.DiagnosticData.OfCycleType(f.cfg.DiagnosticCycleType)
	if len(typed.CycleIndices()) < need {
		return false, "Diagnostic cycles insufficient for featurization"
	}
	return true, ""
}

var diagnosticQuantities = []struct {
	quantity string
	metric   string
	charge   bool // which leg's mask selects the rows
}{
	{"charging_capacity", "charge_capacity", true},
	{"discharging_capacity", "discharge_capacity", false},
	{"charging_energy", "charge_energy", true},
	{"discharging_energy", "discharge_energy", false},
	{"charging_dQdV", "charge_dQdV", true},
	{"discharging_dQdV", "discharge_dQdV", false},
}

var summaryDiffMetrics = []string{
	"discharge_capacity", "discharge_energy", "charge_capacity", "charge_energy",
}

// Compute produces one stat column per (statistic, quantity) pair followed by
// the relative summary-difference block.
func (f *DiagnosticSummaryStats) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	filtered := cycler.FilterDiagnosticArtifacts(dp.DiagnosticData, f.cfg.TestTimeFilterSec, f.cfg.CycleIndexFilter)

	filePath, _ := dp.ProtocolFilePath()
	params, err := f.lookup(filePath, f.cfg.ParametersDir)
	if err != nil {
		return nil, fmt.Errorf("protocol parameters: %w", err)
	}

	pos0, pos1 := f.cfg.DiagPosList[0], f.cfg.DiagPosList[1]
	legs0, err := align.Resolve(filtered, f.cfg.DiagnosticCycleType, pos0, params)
	if err != nil {
		return nil, err
	}
	legs1, err := align.Resolve(filtered, f.cfg.DiagnosticCycleType, pos1, params)
	if err != nil {
		return nil, err
	}

	charge0, discharge0 := align.Masks(filtered, legs0)
	charge1, discharge1 := align.Masks(filtered, legs1)

	result := NewFeatureResult()
	for _, sel := range diagnosticQuantities {
		earlyMask, lateMask := discharge0, discharge1
		if sel.charge {
			earlyMask, lateMask = charge0, charge1
		}
		residuals, err := diffmetric.MaskedResiduals(filtered, sel.metric, earlyMask, lateMask)
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

	f.summaryDiffs(dp, result)
	return result, nil
}

// summaryDiffs appends the relative change of each aggregate metric between
// the two comparison positions, per reference cycle type. The column name
// keeps the historical form diag_sum_diff_<p0>_<p1>_<cycle_type><metric>.
func (f *DiagnosticSummaryStats) summaryDiffs(dp *cycler.DataPath, result *FeatureResult) {
	pos0, pos1 := f.cfg.DiagPosList[0], f.cfg.DiagPosList[1]
	for _, cycleType := range f.cfg.SummaryDiffCycleTypes {
		occurrences := dp.DiagnosticSummary.OfType(cycleType)
		if len(occurrences) <= max(pos0, pos1) {
			continue
		}
		for _, metric := range summaryDiffMetrics {
			v0, _ := occurrences[pos0].Metric(metric)
			v1, _ := occurrences[pos1].Metric(metric)
			name := fmt.Sprintf("diag_sum_diff_%d_%d_%s%s", pos0, pos1, cycleType, metric)
			result.SetFloat(name, (v1-v0)/v0)
		}
	}
}
