// Package featurizer turns structured cycler runs into fixed-shape feature
// rows for downstream degradation prediction models.
//
// Every extractor follows the same two-phase contract: Validate inspects the
// run's structural preconditions and refuses with a reason when they are not
// met; Compute deterministically produces a single-row feature table and only
// errors on conditions validation cannot screen (bad protocol files,
// unsatisfiable numeric requests). Compute must not be called after a
// Validate refusal; its behavior is then unspecified.
package featurizer

import (
	"github.com/planbiir/cyclefeat/internal/cycler"
)

// Featurizer is the contract every feature extractor implements.
type Featurizer interface {
	// Name identifies the extractor in results and logs.
	Name() string

	// Validate checks every structural precondition Compute depends on.
	// Expected-missing-data conditions are refusals with a human-readable
	// reason, never errors.
	Validate(dp *cycler.DataPath) (bool, string)

	// Compute produces the extractor's single-row feature table. Pure
	// given validated input; it never mutates the DataPath.
	Compute(dp *cycler.DataPath) (*FeatureResult, error)
}

// diagnosticDataPresent is the shared precondition for extractors working on
// diagnostic cycles.
func diagnosticDataPresent(dp *cycler.DataPath) (bool, string) {
	if len(dp.DiagnosticSummary) == 0 {
		return false, "diagnostic summary is empty"
	}
	if len(dp.DiagnosticData) == 0 {
		return false, "diagnostic time series is empty"
	}
	return true, ""
}

// pathsSet checks that the run can be traced back to a file for protocol
// parameter lookup.
func pathsSet(dp *cycler.DataPath) (bool, string) {
	if _, ok := dp.ProtocolFilePath(); !ok {
		return false, "datapath paths not set, unable to fetch charging protocol"
	}
	return true, ""
}
