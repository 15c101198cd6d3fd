package featurizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

// fadeDataPath builds 120 summary rows with a perfectly linear capacity fade
// and interpolated discharge curves for the anchor cycles.
func fadeDataPath() *cycler.DataPath {
	dp := &cycler.DataPath{}
	for i := 0; i < 120; i++ {
		ir := 0.01
		if i == 5 {
			ir = 0 // sensor dropout
		}
		dp.StructuredSummary = append(dp.StructuredSummary, cycler.SummaryRow{
			CycleIndex:                i + 1,
			DischargeCapacity:         1.1 - 0.001*float64(i),
			ChargeDuration:            600,
			TimeTemperatureIntegrated: 10,
			TemperatureMaximum:        31,
			TemperatureMinimum:        29,
			DCInternalResistance:      ir,
		})
	}

	// Interpolated discharge curves for the positional anchor cycles
	// (final pred position 99, initial pred position 9).
	dp.StructuredData = cycler.TimeSeries{
		{CycleIndex: 9, StepType: cycler.StepDischarge, DischargeCapacity: 1.0},
		{CycleIndex: 9, StepType: cycler.StepDischarge, DischargeCapacity: 1.0},
		{CycleIndex: 99, StepType: cycler.StepDischarge, DischargeCapacity: 0.9},
		{CycleIndex: 99, StepType: cycler.StepDischarge, DischargeCapacity: 0.92},
	}
	return dp
}

func TestDeltaQFastChargeCompute(t *testing.T) {
	f, err := NewDeltaQFastCharge(DefaultDeltaQFastChargeConfig())
	require.NoError(t, err)

	dp := fadeDataPath()
	ok, reason := f.Validate(dp)
	require.True(t, ok, reason)

	res, err := f.Compute(dp)
	require.NoError(t, err)
	assert.Equal(t, 21, res.Len())

	check := func(name string) float64 {
		t.Helper()
		v, ok := res.Float(name)
		require.True(t, ok, name)
		return v
	}

	assert.InDelta(t, 1.099, check("discharge_capacity_cycle_2"), 1e-12)
	assert.InDelta(t, 0.001, check("max_discharge_capacity_difference"), 1e-12)
	assert.InDelta(t, 1.001, check("discharge_capacity_cycle_100"), 1e-12)
	assert.InDelta(t, 1000, check("integrated_time_temperature_cycles_1:100"), 1e-9)
	assert.InDelta(t, 600, check("charge_time_cycles_1:5"), 1e-9)

	// Delta Q residuals are [-0.1, -0.08].
	assert.InDelta(t, math.Log10(0.1), check("abs_min_discharge_capacity_difference_cycles_2:100"), 1e-12)
	assert.InDelta(t, math.Log10(0.09), check("abs_mean_discharge_capacity_difference_cycles_2:100"), 1e-12)
	assert.InDelta(t, math.Log10(0.1), check("abs_first_discharge_capacity_difference_cycles_2:100"), 1e-12)

	assert.InDelta(t, 31, check("max_temperature_cycles_1:100"), 1e-12)
	assert.InDelta(t, 29, check("min_temperature_cycles_1:100"), 1e-12)

	// The fade is exactly linear in position.
	assert.InDelta(t, -0.001, check("slope_discharge_capacity_cycle_number_2:100"), 1e-9)
	assert.InDelta(t, 1.1, check("intercept_discharge_capacity_cycle_number_2:100"), 1e-9)
	assert.InDelta(t, -0.001, check("slope_discharge_capacity_cycle_number_91:100"), 1e-9)
	assert.InDelta(t, 1.1, check("intercept_discharge_capacity_cycle_number_91:100"), 1e-9)

	// The zero reading at position 5 is treated as missing, not as a
	// genuine minimum.
	assert.InDelta(t, 0.01, check("min_internal_resistance_cycles_2:100"), 1e-12)
	assert.InDelta(t, 0.01, check("internal_resistance_cycle_2"), 1e-12)
	assert.InDelta(t, 0, check("internal_resistance_difference_cycles_2:100"), 1e-12)

	// Median discharge capacity over the first 40 positions.
	assert.InDelta(t, 1.0805, check("nominal_capacity_by_median"), 1e-12)
}

func TestDeltaQFastChargeEmptyDischargeCurves(t *testing.T) {
	f, err := NewDeltaQFastCharge(DefaultDeltaQFastChargeConfig())
	require.NoError(t, err)

	dp := fadeDataPath()
	dp.StructuredData = cycler.TimeSeries{
		{CycleIndex: 9, StepType: cycler.StepCharge, ChargeCapacity: 1.0},
	}

	res, err := f.Compute(dp)
	require.NoError(t, err)

	v, ok := res.Float("abs_min_discharge_capacity_difference_cycles_2:100")
	require.True(t, ok)
	assert.True(t, math.IsNaN(v))
}

func TestDeltaQFastChargeValidate(t *testing.T) {
	f, err := NewDeltaQFastCharge(DefaultDeltaQFastChargeConfig())
	require.NoError(t, err)

	short := &cycler.DataPath{}
	for i := 0; i < 50; i++ {
		short.StructuredSummary = append(short.StructuredSummary, cycler.SummaryRow{CycleIndex: i + 1})
	}
	ok, reason := f.Validate(short)
	assert.False(t, ok)
	assert.Contains(t, reason, "final pred cycle")

	ok, _ = f.Validate(&cycler.DataPath{})
	assert.False(t, ok)
}

func TestNewDeltaQFastChargeRejectsBadWindows(t *testing.T) {
	cfg := DefaultDeltaQFastChargeConfig()
	cfg.MidPredCycle = 5
	_, err := NewDeltaQFastCharge(cfg)
	require.Error(t, err)

	cfg = DefaultDeltaQFastChargeConfig()
	cfg.FinalPredCycle = cfg.MidPredCycle
	_, err = NewDeltaQFastCharge(cfg)
	require.Error(t, err)

	cfg = DefaultDeltaQFastChargeConfig()
	cfg.NNominalCycles = 0
	_, err = NewDeltaQFastCharge(cfg)
	require.Error(t, err)
}
