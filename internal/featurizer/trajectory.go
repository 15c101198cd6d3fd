package featurizer

import (
	"fmt"
	"math"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

// TrajectoryFastChargeConfig tunes the capacity-trajectory extractor.
type TrajectoryFastChargeConfig struct {
	// ThreshMaxCap / ThreshMinCap / IntervalCap define the descending
	// sequence of capacity fractions to locate cycles for.
	ThreshMaxCap float64
	ThreshMinCap float64
	IntervalCap  float64
}

// DefaultTrajectoryFastChargeConfig returns the standard configuration.
func DefaultTrajectoryFastChargeConfig() TrajectoryFastChargeConfig {
	return TrajectoryFastChargeConfig{
		ThreshMaxCap: 0.98,
		ThreshMinCap: 0.78,
		IntervalCap:  0.03,
	}
}

// TrajectoryFastCharge reports the cycle numbers at which the discharge
// capacity drops below successive fractions of its peak value.
type TrajectoryFastCharge struct {
	cfg TrajectoryFastChargeConfig
}

// NewTrajectoryFastCharge builds the extractor, rejecting an inverted or
// degenerate threshold window at construction.
func NewTrajectoryFastCharge(cfg TrajectoryFastChargeConfig) (*TrajectoryFastCharge, error) {
	if cfg.IntervalCap <= 0 {
		return nil, fmt.Errorf("threshold interval must be positive, got %v", cfg.IntervalCap)
	}
	if cfg.ThreshMaxCap < cfg.ThreshMinCap {
		return nil, fmt.Errorf("threshold window inverted: max %v < min %v", cfg.ThreshMaxCap, cfg.ThreshMinCap)
	}
	return &TrajectoryFastCharge{cfg: cfg}, nil
}

func (f *TrajectoryFastCharge) Name() string { return "TrajectoryFastCharge" }

// Validate checks that the run degraded enough for the first threshold to
// be meaningful.
func (f *TrajectoryFastCharge) Validate(dp *cycler.DataPath) (bool, string) {
	if len(dp.StructuredSummary) == 0 {
		return false, "structured summary is empty"
	}
	minCap, maxCap := math.Inf(1), math.Inf(-1)
	for _, row := range dp.StructuredSummary {
		if math.IsNaN(row.DischargeCapacity) {
			continue
		}
		minCap = math.Min(minCap, row.DischargeCapacity)
		maxCap = math.Max(maxCap, row.DischargeCapacity)
	}
	capRatio := minCap / maxCap
	if !(capRatio < f.cfg.ThreshMaxCap) {
		return false, fmt.Sprintf("thresh_max_cap hyperparameter exceeded: %v !< %v", capRatio, f.cfg.ThreshMaxCap)
	}
	return true, ""
}

// Compute produces one cycle-count column per capacity fraction, plus a
// marker for fractions the run never degraded to (those report the last
// observed cycle).
func (f *TrajectoryFastCharge) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	thresholds := dp.CapacitiesToCycles(f.cfg.ThreshMaxCap, f.cfg.ThreshMinCap, f.cfg.IntervalCap)

	result := NewFeatureResult()
	for _, t := range thresholds {
		name := fmt.Sprintf("capacity_%.2f", t.Fraction)
		result.SetFloat(name, float64(t.CycleIndex))
		result.SetBool(name+"_reached", t.Reached)
	}
	return result, nil
}
