package featurizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

func protocolDataPath() *cycler.DataPath {
	return &cycler.DataPath{
		Paths:             map[string]string{"raw": "/data/PreDiag_000001.csv"},
		DiagnosticData:    cycler.TimeSeries{{CycleIndex: 1, CycleType: "rpt_0.2C"}},
		DiagnosticSummary: cycler.DiagnosticSummary{{SummaryRow: cycler.SummaryRow{CycleIndex: 1}, CycleType: "rpt_0.2C"}},
	}
}

func TestChargingProtocolCompute(t *testing.T) {
	f, err := NewChargingProtocol(DefaultChargingProtocolConfig(), stubProtocolLookup(map[string]string{
		"charge_constant_current_1":    "0.5",
		"charge_constant_current_2":    "2.0",
		"charge_cutoff_voltage":        "4.2",
		"charge_constant_voltage_time": "30",
		"discharge_constant_current":   "1.0",
		"discharge_cutoff_voltage":     "2.7",
	}))
	require.NoError(t, err)

	dp := protocolDataPath()
	ok, reason := f.Validate(dp)
	require.True(t, ok, reason)

	res, err := f.Compute(dp)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Len())

	v, ok := res.Float("charge_cutoff_voltage")
	require.True(t, ok)
	assert.Equal(t, 4.2, v)

	v, ok = res.Float("discharge_constant_current")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestChargingProtocolMissingParameter(t *testing.T) {
	f, err := NewChargingProtocol(DefaultChargingProtocolConfig(), stubProtocolLookup(map[string]string{
		"charge_constant_current_1": "0.5",
	}))
	require.NoError(t, err)

	_, err = f.Compute(protocolDataPath())
	require.Error(t, err)
}

func TestChargingProtocolValidate(t *testing.T) {
	f, err := NewChargingProtocol(DefaultChargingProtocolConfig(), stubProtocolLookup(nil))
	require.NoError(t, err)

	dp := protocolDataPath()
	dp.Paths = nil
	ok, _ := f.Validate(dp)
	assert.False(t, ok)
}

func TestNewChargingProtocolRejectsEmptyQuantities(t *testing.T) {
	_, err := NewChargingProtocol(ChargingProtocolConfig{}, nil)
	require.Error(t, err)
}
