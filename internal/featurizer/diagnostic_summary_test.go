package featurizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/protocol"
)

func stubProtocolLookup(values map[string]string) protocol.LookupFunc {
	return func(filePath, parametersDir string) (protocol.Parameters, error) {
		return protocol.NewParameters(values), nil
	}
}

// diagnosticOccurrence lays out one rpt_0.2C cycle: a shallow conditioning
// charge step, the full charge leg and the discharge leg, two samples each on
// the legs so residual arrays line up between occurrences.
func diagnosticOccurrence(cycle int, v float64) cycler.TimeSeries {
	leg := func(step int, st cycler.StepType, voltage, value float64) cycler.Row {
		return cycler.Row{
			CycleIndex:        cycle,
			StepIndex:         step,
			StepType:          st,
			CycleType:         "rpt_0.2C",
			TestTime:          100,
			Voltage:           voltage,
			ChargeCapacity:    value,
			DischargeCapacity: value,
			ChargeEnergy:      value,
			DischargeEnergy:   value,
			ChargeDQdV:        value,
			DischargeDQdV:     value,
		}
	}
	return cycler.TimeSeries{
		leg(1, cycler.StepCharge, 3.6, 0.2),
		leg(2, cycler.StepCharge, 4.0, v),
		leg(2, cycler.StepCharge, 4.2, v+0.1),
		leg(3, cycler.StepDischarge, 3.0, v),
		leg(3, cycler.StepDischarge, 2.7, v+0.1),
	}
}

func diagnosticStatsDataPath() *cycler.DataPath {
	dp := &cycler.DataPath{
		Paths: map[string]string{"raw": "/data/PreDiag_000001.csv"},
	}
	dp.DiagnosticData = append(dp.DiagnosticData, diagnosticOccurrence(2, 1.0)...)
	dp.DiagnosticData = append(dp.DiagnosticData, diagnosticOccurrence(50, 0.8)...)
	dp.DiagnosticSummary = cycler.DiagnosticSummary{
		{SummaryRow: cycler.SummaryRow{CycleIndex: 2, DischargeCapacity: 1.0, DischargeEnergy: 3.5, ChargeCapacity: 1.0, ChargeEnergy: 3.7}, CycleType: "rpt_0.2C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 50, DischargeCapacity: 0.8, DischargeEnergy: 3.0, ChargeCapacity: 0.9, ChargeEnergy: 3.4}, CycleType: "rpt_0.2C"},
	}
	return dp
}

func diagnosticStatsExtractor(t *testing.T) *DiagnosticSummaryStats {
	t.Helper()
	f, err := NewDiagnosticSummaryStats(DefaultDiagnosticSummaryStatsConfig(), stubProtocolLookup(map[string]string{
		"charge_cutoff_voltage":    "4.2",
		"discharge_cutoff_voltage": "2.7",
	}))
	require.NoError(t, err)
	return f
}

func TestDiagnosticSummaryStatsCompute(t *testing.T) {
	f := diagnosticStatsExtractor(t)
	dp := diagnosticStatsDataPath()

	ok, reason := f.Validate(dp)
	require.True(t, ok, reason)

	res, err := f.Compute(dp)
	require.NoError(t, err)

	// 7 statistics by 6 quantities, plus 4 summary diffs for the one
	// reference cycle type present.
	assert.Equal(t, 46, res.Len())

	// Residuals are [-0.2, -0.2] on every leg quantity.
	mean, ok := res.Float("mean_charging_capacity")
	require.True(t, ok)
	assert.InDelta(t, math.Log10(0.2), mean, 1e-9)

	mean, ok = res.Float("mean_discharging_dQdV")
	require.True(t, ok)
	assert.InDelta(t, math.Log10(0.2), mean, 1e-9)

	diff, ok := res.Float("diag_sum_diff_0_1_rpt_0.2Cdischarge_capacity")
	require.True(t, ok)
	assert.InDelta(t, -0.2, diff, 1e-9)

	diff, ok = res.Float("diag_sum_diff_0_1_rpt_0.2Ccharge_capacity")
	require.True(t, ok)
	assert.InDelta(t, -0.1, diff, 1e-9)
}

func TestDiagnosticSummaryStatsFiltersArtifacts(t *testing.T) {
	f := diagnosticStatsExtractor(t)
	dp := diagnosticStatsDataPath()

	// A "final" diagnostic recorded under a low cycle index would become
	// the first occurrence and shift the comparison if not filtered.
	artifact := diagnosticOccurrence(1, 0.5)
	for i := range artifact {
		artifact[i].TestTime = 2_000_000
	}
	dp.DiagnosticData = append(artifact, dp.DiagnosticData...)

	res, err := f.Compute(dp)
	require.NoError(t, err)

	mean, ok := res.Float("mean_charging_capacity")
	require.True(t, ok)
	assert.InDelta(t, math.Log10(0.2), mean, 1e-9)
}

func TestDiagnosticSummaryStatsValidate(t *testing.T) {
	f := diagnosticStatsExtractor(t)

	dp := &cycler.DataPath{}
	ok, _ := f.Validate(dp)
	assert.False(t, ok)

	dp = diagnosticStatsDataPath()
	dp.DiagnosticData = dp.DiagnosticData[:5] // single occurrence
	ok, reason := f.Validate(dp)
	assert.False(t, ok)
	assert.Equal(t, "Diagnostic cycles insufficient for featurization", reason)
}

func TestNewDiagnosticSummaryStatsRejectsBadConfig(t *testing.T) {
	cfg := DefaultDiagnosticSummaryStatsConfig()
	cfg.Statistics = []string{"mode"}
	_, err := NewDiagnosticSummaryStats(cfg, nil)
	require.Error(t, err)

	cfg = DefaultDiagnosticSummaryStatsConfig()
	cfg.DiagnosticCycleType = ""
	_, err = NewDiagnosticSummaryStats(cfg, nil)
	require.Error(t, err)
}
