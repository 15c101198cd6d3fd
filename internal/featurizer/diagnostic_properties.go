package featurizer

import (
	"fmt"
	"strconv"

	"github.com/planbiir/cyclefeat/internal/crossing"
	"github.com/planbiir/cyclefeat/internal/cycler"
)

// DiagnosticPropertiesConfig tunes the degradation-milestone extractor.
type DiagnosticPropertiesConfig struct {
	// Quantities are the metrics whose fractional trajectories are built
	// for every diagnostic cycle type present in the run.
	Quantities []string

	// CycleType / Metric / Threshold select the trajectory the crossing
	// solver condenses into milestone values.
	CycleType string
	Metric    string
	Threshold float64

	// InterpolationAxes are the x-axes to resolve the crossing on.
	InterpolationAxes []string

	// FilterKinks, when positive, truncates the trajectory before an
	// abrupt change in degradation rate. Zero disables the filter.
	FilterKinks float64

	// Extrapolate allows locating the milestone beyond the observed data
	// for runs that have not yet crossed the threshold.
	Extrapolate bool
}

// DefaultDiagnosticPropertiesConfig returns the standard configuration.
func DefaultDiagnosticPropertiesConfig() DiagnosticPropertiesConfig {
	return DiagnosticPropertiesConfig{
		Quantities: []string{"discharge_energy", "discharge_capacity"},
		CycleType:  "rpt_1C",
		Metric:     "discharge_energy",
		Threshold:  0.8,
		InterpolationAxes: []string{
			crossing.AxisNormalizedThroughput,
			crossing.AxisCycleIndex,
		},
		Extrapolate: true,
	}
}

// DiagnosticProperties accumulates fractional degradation trajectories per
// (quantity, cycle type) and condenses the configured one into threshold
// crossing milestones.
type DiagnosticProperties struct {
	cfg DiagnosticPropertiesConfig
}

// NewDiagnosticProperties builds the extractor, rejecting an empty axis or
// quantity list at construction.
func NewDiagnosticProperties(cfg DiagnosticPropertiesConfig) (*DiagnosticProperties, error) {
	if len(cfg.Quantities) == 0 {
		return nil, fmt.Errorf("at least one quantity required")
	}
	if len(cfg.InterpolationAxes) == 0 {
		return nil, fmt.Errorf("at least one interpolation axis required")
	}
	if cfg.CycleType == "" || cfg.Metric == "" {
		return nil, fmt.Errorf("cycle type and metric must be set")
	}
	return &DiagnosticProperties{cfg: cfg}, nil
}

func (f *DiagnosticProperties) Name() string { return "DiagnosticProperties" }

// Validate checks for diagnostic data and at least two occurrences of the
// configured cycle type, the minimum for interpolation.
func (f *DiagnosticProperties) Validate(dp *cycler.DataPath) (bool, string) {
	if ok, reason := diagnosticDataPresent(dp); !ok {
		return false, reason
	}
	if len(dp.DiagnosticSummary.OfType(f.cfg.CycleType)) < 2 {
		return false, fmt.Sprintf("fewer than 2 %q diagnostic cycles", f.cfg.CycleType)
	}
	return true, ""
}

// Compute builds the trajectory table across all quantities and cycle types,
// then solves the configured trajectory for its threshold crossing.
func (f *DiagnosticProperties) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	type seriesKey struct{ quantity, cycleType string }
	table := make(map[seriesKey]crossing.Series)
	for _, quantity := range f.cfg.Quantities {
		for _, cycleType := range dp.DiagnosticSummary.CycleTypes() {
			s, err := crossing.BuildFractionalSeries(dp, quantity, cycleType)
			if err != nil {
				return nil, fmt.Errorf("fractional series %s/%s: %w", quantity, cycleType, err)
			}
			table[seriesKey{quantity, cycleType}] = s
		}
	}

	series, ok := table[seriesKey{f.cfg.Metric, f.cfg.CycleType}]
	if !ok {
		return nil, fmt.Errorf("configured trajectory %s/%s not in accumulated table", f.cfg.Metric, f.cfg.CycleType)
	}

	milestones, err := crossing.SolveSeries(series, f.cfg.InterpolationAxes, crossing.Config{
		Threshold:   f.cfg.Threshold,
		FilterKinks: f.cfg.FilterKinks,
		Extrapolate: f.cfg.Extrapolate,
	})
	if err != nil {
		return nil, err
	}

	result := NewFeatureResult()
	result.SetFloat("initial_regular_throughput", series.InitialRegularThroughput)

	axes := f.cfg.InterpolationAxes
	if _, ok := milestones[crossing.AxisRealThroughput]; ok {
		axes = append(append([]string{}, axes...), crossing.AxisRealThroughput)
	}
	thresholdTag := strconv.FormatFloat(f.cfg.Threshold, 'g', -1, 64)
	for _, axis := range axes {
		result.SetFloat(f.cfg.CycleType+f.cfg.Metric+thresholdTag+"_"+axis, milestones[axis])
	}
	return result, nil
}
