// Package align resolves which rows of a diagnostic time series belong to the
// charge and discharge legs of a given diagnostic cycle occurrence.
package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/protocol"
)

// ErrPositionOutOfRange is returned when the requested occurrence ordinal
// exceeds the number of diagnostic cycles of that type in the run.
var ErrPositionOutOfRange = errors.New("diagnostic position out of range")

// StepLegs identifies the charge and discharge step of one diagnostic
// occurrence.
type StepLegs struct {
	CycleIndex    int
	ChargeStep    int
	DischargeStep int
}

// Resolve locates the diagPos-th occurrence (0-based) of cycleType in the
// diagnostic series and determines its charge and discharge step indices.
// The legs are picked by matching each candidate step's voltage excursion
// against the protocol's cutoff voltages, since diagnostic protocols reuse
// step numbers across cycle types.
func Resolve(ts cycler.TimeSeries, cycleType string, diagPos int, params protocol.Parameters) (StepLegs, error) {
	typed := ts.OfCycleType(cycleType)
	cycles := typed.CycleIndices()
	if diagPos < 0 || diagPos >= len(cycles) {
		return StepLegs{}, fmt.Errorf("%w: position %d of %q, %d occurrence(s) available",
			ErrPositionOutOfRange, diagPos, cycleType, len(cycles))
	}

	chargeCutoff, err := params.Float("charge_cutoff_voltage")
	if err != nil {
		return StepLegs{}, err
	}
	dischargeCutoff, err := params.Float("discharge_cutoff_voltage")
	if err != nil {
		return StepLegs{}, err
	}

	cycle := typed.ForCycle(cycles[diagPos])
	legs := StepLegs{CycleIndex: cycles[diagPos]}

	legs.ChargeStep, err = closestStep(cycle.WithStepType(cycler.StepCharge), chargeCutoff, maxStepVoltage)
	if err != nil {
		return StepLegs{}, fmt.Errorf("charge leg of %q position %d: %w", cycleType, diagPos, err)
	}
	legs.DischargeStep, err = closestStep(cycle.WithStepType(cycler.StepDischarge), dischargeCutoff, minStepVoltage)
	if err != nil {
		return StepLegs{}, fmt.Errorf("discharge leg of %q position %d: %w", cycleType, diagPos, err)
	}
	return legs, nil
}

// Masks builds row masks over ts selecting the charge and discharge rows of
// the resolved occurrence. The masks are aligned with ts row for row.
func Masks(ts cycler.TimeSeries, legs StepLegs) (charge, discharge []bool) {
	charge = make([]bool, len(ts))
	discharge = make([]bool, len(ts))
	for i, r := range ts {
		if r.CycleIndex != legs.CycleIndex {
			continue
		}
		if r.StepIndex == legs.ChargeStep {
			charge[i] = true
		}
		if r.StepIndex == legs.DischargeStep {
			discharge[i] = true
		}
	}
	return charge, discharge
}

// closestStep returns the step index whose voltage excursion (per extremum)
// lands closest to the protocol cutoff.
func closestStep(rows cycler.TimeSeries, cutoff float64, extremum func(cycler.TimeSeries) float64) (int, error) {
	steps := rows.StepIndices()
	if len(steps) == 0 {
		return 0, errors.New("no rows for step leg")
	}

	best := steps[0]
	bestDist := math.Inf(1)
	for _, step := range steps {
		var stepRows cycler.TimeSeries
		for _, r := range rows {
			if r.StepIndex == step {
				stepRows = append(stepRows, r)
			}
		}
		v := extremum(stepRows)
		if math.IsNaN(v) {
			continue
		}
		if d := math.Abs(v - cutoff); d < bestDist {
			bestDist = d
			best = step
		}
	}
	if math.IsInf(bestDist, 1) {
		return 0, errors.New("no step leg with a finite voltage")
	}
	return best, nil
}

func maxStepVoltage(rows cycler.TimeSeries) float64 {
	v := math.NaN()
	for _, r := range rows {
		if math.IsNaN(r.Voltage) {
			continue
		}
		if math.IsNaN(v) || r.Voltage > v {
			v = r.Voltage
		}
	}
	return v
}

func minStepVoltage(rows cycler.TimeSeries) float64 {
	v := math.NaN()
	for _, r := range rows {
		if math.IsNaN(r.Voltage) {
			continue
		}
		if math.IsNaN(v) || r.Voltage < v {
			v = r.Voltage
		}
	}
	return v
}
