package featurizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/cyclefeat/internal/crossing"
	"github.com/planbiir/cyclefeat/internal/cycler"
)

func degradationDataPath() *cycler.DataPath {
	dp := &cycler.DataPath{}
	for i := 1; i <= 400; i++ {
		dp.StructuredSummary = append(dp.StructuredSummary, cycler.SummaryRow{
			CycleIndex:       i,
			ChargeThroughput: 0.1 * float64(i),
		})
	}
	dp.DiagnosticSummary = cycler.DiagnosticSummary{
		{SummaryRow: cycler.SummaryRow{CycleIndex: 10, DischargeEnergy: 5.0, DischargeCapacity: 1.0}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 200, DischargeEnergy: 4.5, DischargeCapacity: 0.9}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 400, DischargeEnergy: 3.9, DischargeCapacity: 0.78}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 12, DischargeEnergy: 5.1, DischargeCapacity: 1.02}, CycleType: "rpt_0.2C"},
	}
	dp.DiagnosticData = cycler.TimeSeries{{CycleIndex: 10, CycleType: "rpt_1C"}}
	return dp
}

func TestDiagnosticPropertiesCompute(t *testing.T) {
	f, err := NewDiagnosticProperties(DefaultDiagnosticPropertiesConfig())
	require.NoError(t, err)

	dp := degradationDataPath()
	ok, reason := f.Validate(dp)
	require.True(t, ok, reason)

	res, err := f.Compute(dp)
	require.NoError(t, err)

	initial, ok := res.Float("initial_regular_throughput")
	require.True(t, ok)
	assert.InDelta(t, 1.0, initial, 1e-12)

	// The fractional energy declines 1.0, 0.9, 0.78; the 0.8 crossing sits
	// at x = 36.67 on the normalized throughput axis (1, 20, 40) and at
	// cycle 366.67 on the cycle index axis.
	norm, ok := res.Float("rpt_1Cdischarge_energy0.8_normalized_regular_throughput")
	require.True(t, ok)
	assert.InDelta(t, 36.67, norm, 0.05)

	cyc, ok := res.Float("rpt_1Cdischarge_energy0.8_cycle_index")
	require.True(t, ok)
	assert.InDelta(t, 366.67, cyc, 0.5)

	real, ok := res.Float("rpt_1Cdischarge_energy0.8_real_regular_throughput")
	require.True(t, ok)
	assert.InDelta(t, norm*initial, real, 1e-9)
}

func TestDiagnosticPropertiesExtrapolates(t *testing.T) {
	f, err := NewDiagnosticProperties(DefaultDiagnosticPropertiesConfig())
	require.NoError(t, err)

	dp := degradationDataPath()
	// The run stops before crossing 0.8; the milestone comes from the
	// extrapolated trend.
	dp.DiagnosticSummary[2].DischargeEnergy = 4.25

	res, err := f.Compute(dp)
	require.NoError(t, err)

	norm, ok := res.Float("rpt_1Cdischarge_energy0.8_normalized_regular_throughput")
	require.True(t, ok)
	assert.Greater(t, norm, 40.0)
}

func TestDiagnosticPropertiesValidate(t *testing.T) {
	f, err := NewDiagnosticProperties(DefaultDiagnosticPropertiesConfig())
	require.NoError(t, err)

	ok, _ := f.Validate(&cycler.DataPath{})
	assert.False(t, ok)

	dp := degradationDataPath()
	dp.DiagnosticSummary = dp.DiagnosticSummary[:1]
	ok, reason := f.Validate(dp)
	assert.False(t, ok)
	assert.Contains(t, reason, "fewer than 2")
}

func TestNewDiagnosticPropertiesRejectsBadConfig(t *testing.T) {
	cfg := DefaultDiagnosticPropertiesConfig()
	cfg.Quantities = nil
	_, err := NewDiagnosticProperties(cfg)
	require.Error(t, err)

	cfg = DefaultDiagnosticPropertiesConfig()
	cfg.InterpolationAxes = nil
	_, err = NewDiagnosticProperties(cfg)
	require.Error(t, err)

	cfg = DefaultDiagnosticPropertiesConfig()
	cfg.Metric = ""
	_, err = NewDiagnosticProperties(cfg)
	require.Error(t, err)
}

func TestDiagnosticPropertiesColumnOrder(t *testing.T) {
	f, err := NewDiagnosticProperties(DefaultDiagnosticPropertiesConfig())
	require.NoError(t, err)

	res, err := f.Compute(degradationDataPath())
	require.NoError(t, err)

	cols := res.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, "initial_regular_throughput", cols[0])
	assert.Equal(t, "rpt_1Cdischarge_energy0.8_"+crossing.AxisNormalizedThroughput, cols[1])
	assert.Equal(t, "rpt_1Cdischarge_energy0.8_"+crossing.AxisCycleIndex, cols[2])
	assert.Equal(t, "rpt_1Cdischarge_energy0.8_"+crossing.AxisRealThroughput, cols[3])
}
