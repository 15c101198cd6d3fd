package featurizer

import (
	"fmt"

	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/protocol"
)

// ChargingProtocolConfig tunes the protocol-constant extractor.
type ChargingProtocolConfig struct {
	// Quantities are the protocol parameter columns to surface.
	Quantities []string

	// ParametersDir is the charging-protocol parameter file store.
	ParametersDir string
}

// DefaultChargingProtocolConfig returns the standard configuration.
func DefaultChargingProtocolConfig() ChargingProtocolConfig {
	return ChargingProtocolConfig{
		Quantities: []string{
			"charge_constant_current_1",
			"charge_constant_current_2",
			"charge_cutoff_voltage",
			"charge_constant_voltage_time",
			"discharge_constant_current",
			"discharge_cutoff_voltage",
		},
	}
}

// ChargingProtocol surfaces the run's charging-protocol constants as a
// feature row.
type ChargingProtocol struct {
	cfg    ChargingProtocolConfig
	lookup protocol.LookupFunc
}

// NewChargingProtocol builds the extractor. A nil lookup falls back to the
// file-backed protocol lookup.
func NewChargingProtocol(cfg ChargingProtocolConfig, lookup protocol.LookupFunc) (*ChargingProtocol, error) {
	if len(cfg.Quantities) == 0 {
		return nil, fmt.Errorf("at least one protocol quantity required")
	}
	if lookup == nil {
		lookup = protocol.Lookup
	}
	return &ChargingProtocol{cfg: cfg, lookup: lookup}, nil
}

func (f *ChargingProtocol) Name() string { return "ChargingProtocol" }

// Validate checks that the protocol can be fetched and diagnostic data is
// present.
func (f *ChargingProtocol) Validate(dp *cycler.DataPath) (bool, string) {
	if ok, reason := pathsSet(dp); !ok {
		return false, reason
	}
	return diagnosticDataPresent(dp)
}

// Compute looks up the protocol row and copies the requested constants.
// A missing parameter column is a fail-fast error.
func (f *ChargingProtocol) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	filePath, _ := dp.ProtocolFilePath()
	params, err := f.lookup(filePath, f.cfg.ParametersDir)
	if err != nil {
		return nil, fmt.Errorf("protocol parameters: %w", err)
	}

	result := NewFeatureResult()
	for _, quantity := range f.cfg.Quantities {
		v, err := params.Float(quantity)
		if err != nil {
			return nil, err
		}
		result.SetFloat(quantity, v)
	}
	return result, nil
}
