package crossing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

func seriesDataPath() *cycler.DataPath {
	summary := cycler.Summary{
		{CycleIndex: 1, ChargeThroughput: 2},
		{CycleIndex: 2, ChargeThroughput: 4},
		{CycleIndex: 3, ChargeThroughput: math.NaN()},
		{CycleIndex: 4, ChargeThroughput: 8},
		{CycleIndex: 5, ChargeThroughput: 10},
	}
	diag := cycler.DiagnosticSummary{
		{SummaryRow: cycler.SummaryRow{CycleIndex: 2, DischargeEnergy: 5.0}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 4, DischargeEnergy: 4.0}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 5, DischargeEnergy: 3.0}, CycleType: "rpt_0.2C"},
	}
	return &cycler.DataPath{StructuredSummary: summary, DiagnosticSummary: diag}
}

func TestBuildFractionalSeries(t *testing.T) {
	s, err := BuildFractionalSeries(seriesDataPath(), "discharge_energy", "rpt_1C")
	require.NoError(t, err)

	assert.Equal(t, "rpt_1C", s.CycleType)
	assert.Equal(t, "discharge_energy", s.Metric)
	assert.Equal(t, 4.0, s.InitialRegularThroughput)

	require.Len(t, s.Points, 2)
	assert.InDelta(t, 1.0, s.Points[0].FractionalMetric, 1e-12)
	assert.InDelta(t, 0.8, s.Points[1].FractionalMetric, 1e-12)

	assert.InDelta(t, 1.0, s.Points[0].Axes[AxisNormalizedThroughput], 1e-12)
	assert.InDelta(t, 2.0, s.Points[1].Axes[AxisNormalizedThroughput], 1e-12)
	assert.Equal(t, 2.0, s.Points[0].Axes[AxisCycleIndex])
	assert.Equal(t, 4.0, s.Points[1].Axes[AxisCycleIndex])
}

func TestBuildFractionalSeriesSkipsNaNThroughput(t *testing.T) {
	dp := seriesDataPath()
	dp.DiagnosticSummary = cycler.DiagnosticSummary{
		{SummaryRow: cycler.SummaryRow{CycleIndex: 2, DischargeEnergy: 5.0}, CycleType: "rpt_1C"},
		{SummaryRow: cycler.SummaryRow{CycleIndex: 3, DischargeEnergy: 4.5}, CycleType: "rpt_1C"},
	}

	s, err := BuildFractionalSeries(dp, "discharge_energy", "rpt_1C")
	require.NoError(t, err)

	// Cycle 3 has no finite throughput; the last finite value carries over.
	assert.InDelta(t, 1.0, s.Points[1].Axes[AxisNormalizedThroughput], 1e-12)
}

func TestBuildFractionalSeriesMissingCycleType(t *testing.T) {
	_, err := BuildFractionalSeries(seriesDataPath(), "discharge_energy", "hppc")
	require.Error(t, err)
}

func TestBuildFractionalSeriesUnknownColumn(t *testing.T) {
	_, err := BuildFractionalSeries(seriesDataPath(), "no_such_column", "rpt_1C")
	require.Error(t, err)
}
