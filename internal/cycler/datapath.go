package cycler

import (
	"math"
)

// DataPath holds the structured tables of one complete cycler test run.
// It is populated by the structuring/ingestion layer before any feature
// extraction runs. One DataPath must not be shared across concurrent
// extractor invocations.
type DataPath struct {
	StructuredData    TimeSeries
	StructuredSummary Summary
	DiagnosticData    TimeSeries
	DiagnosticSummary DiagnosticSummary

	// Paths maps file roles to paths; at least one of "raw" or
	// "structured" must be set for protocol parameter lookups.
	Paths map[string]string

	// StructuringParameters carries settings recorded by the structuring
	// layer and may include a precomputed "nominal_capacity".
	StructuringParameters map[string]any
}

// ProtocolFilePath returns the file path used for protocol parameter lookup,
// preferring the raw file over the structured one.
func (dp *DataPath) ProtocolFilePath() (string, bool) {
	if p, ok := dp.Paths["raw"]; ok {
		return p, true
	}
	if p, ok := dp.Paths["structured"]; ok {
		return p, true
	}
	return "", false
}

// FilterDiagnosticArtifacts returns a copy of the diagnostic time series with
// malformed trailing rows removed. Cyclers append "final" diagnostic cycles
// at the end of the file under low cycle numbers; those rows have a test time
// past the filter while claiming an early cycle index. Groups whose test time
// is entirely NaN are dropped as well. Rows are only removed, never reordered,
// and the input series is left untouched.
func FilterDiagnosticArtifacts(ts TimeSeries, testTimeFilterSec float64, cycleIndexFilter int) TimeSeries {
	kept := make(TimeSeries, 0, len(ts))
	for _, r := range ts {
		if r.TestTime > testTimeFilterSec && r.CycleIndex < cycleIndexFilter {
			continue
		}
		kept = append(kept, r)
	}

	type groupKey struct {
		cycle, step, counter int
	}
	hasTime := make(map[groupKey]bool)
	for _, r := range kept {
		k := groupKey{r.CycleIndex, r.StepIndex, r.StepIndexCounter}
		if !math.IsNaN(r.TestTime) {
			hasTime[k] = true
		} else if _, seen := hasTime[k]; !seen {
			hasTime[k] = false
		}
	}

	out := make(TimeSeries, 0, len(kept))
	for _, r := range kept {
		if hasTime[groupKey{r.CycleIndex, r.StepIndex, r.StepIndexCounter}] {
			out = append(out, r)
		}
	}
	return out
}

// CapacityThreshold reports the cycle at which the discharge capacity first
// fell below a fraction of the run's peak capacity.
type CapacityThreshold struct {
	Fraction   float64
	CycleIndex int
	// Reached is false when the run ended before degrading to Fraction;
	// CycleIndex then holds the last observed cycle.
	Reached bool
}

// CapacitiesToCycles walks a descending sequence of capacity fractions from
// maxCapFrac down to minCapFrac in steps of intervalFrac and locates, for
// each, the first summary cycle whose discharge capacity dropped below that
// fraction of the run's maximum discharge capacity.
func (dp *DataPath) CapacitiesToCycles(maxCapFrac, minCapFrac, intervalFrac float64) []CapacityThreshold {
	if len(dp.StructuredSummary) == 0 || intervalFrac <= 0 {
		return nil
	}

	peak := math.Inf(-1)
	for _, row := range dp.StructuredSummary {
		if !math.IsNaN(row.DischargeCapacity) {
			peak = math.Max(peak, row.DischargeCapacity)
		}
	}
	if math.IsInf(peak, -1) || peak <= 0 {
		return nil
	}

	var out []CapacityThreshold
	// Small slack on the lower bound so that minCapFrac itself is included
	// despite accumulated floating point error.
	for frac := maxCapFrac; frac >= minCapFrac-1e-9; frac -= intervalFrac {
		entry := CapacityThreshold{
			Fraction:   frac,
			CycleIndex: dp.StructuredSummary[len(dp.StructuredSummary)-1].CycleIndex,
		}
		for _, row := range dp.StructuredSummary {
			if row.DischargeCapacity < frac*peak {
				entry.CycleIndex = row.CycleIndex
				entry.Reached = true
				break
			}
		}
		out = append(out, entry)
	}
	return out
}

// CVSegmentFromCharge extracts the constant-voltage tail of a charge step:
// the trailing run of samples where the voltage is pinned at the step maximum
// while the current tapers off. Returns nil when the step has no CV portion.
func CVSegmentFromCharge(charge TimeSeries) TimeSeries {
	if len(charge) == 0 {
		return nil
	}

	vmax := math.Inf(-1)
	for _, r := range charge {
		if !math.IsNaN(r.Voltage) {
			vmax = math.Max(vmax, r.Voltage)
		}
	}
	if math.IsInf(vmax, -1) {
		return nil
	}

	const vTol = 5e-3 // 5 mV hold-band around the cutoff voltage

	onset := -1
	for i, r := range charge {
		if math.IsNaN(r.Voltage) || r.Voltage < vmax-vTol {
			continue
		}
		// Require the current to actually taper after onset, otherwise
		// a single sample touching vmax mid-CC would count as CV.
		if i+1 < len(charge) && !(charge[i+1].Current < r.Current) {
			continue
		}
		onset = i
		break
	}
	if onset < 0 {
		// Voltage reached the hold band only on the final sample.
		last := charge[len(charge)-1]
		if !math.IsNaN(last.Voltage) && last.Voltage >= vmax-vTol {
			return charge[len(charge)-1:]
		}
		return nil
	}
	return charge[onset:]
}
