package featurizer

import (
	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/exclusion"
	"github.com/planbiir/cyclefeat/internal/protocol"
)

// Value column names emitted alongside the rule flags.
const (
	colFirstNCyclesThroughput = "first_n_cycles_throughput"
	colFractionalCapacityEOT  = "fractional_capacity_at_EOT"
	colEquivalentFullCycles   = "equivalent_full_cycles_at_EOL"
	colToInclude              = "to_include"
)

// ExclusionCriteria exposes the exclusion rule evaluation as a feature
// extractor: one value and one flag column per rule, plus the combined
// inclusion flag.
type ExclusionCriteria struct {
	eval *exclusion.Evaluator
}

// NewExclusionCriteria builds the extractor. A nil lookup falls back to the
// file-backed protocol lookup.
func NewExclusionCriteria(cfg exclusion.Config, lookup protocol.LookupFunc) *ExclusionCriteria {
	return &ExclusionCriteria{eval: exclusion.New(cfg, lookup)}
}

func (f *ExclusionCriteria) Name() string { return "ExclusionCriteria" }

// Validate checks that the protocol can be fetched and diagnostic data is
// present.
func (f *ExclusionCriteria) Validate(dp *cycler.DataPath) (bool, string) {
	if ok, reason := pathsSet(dp); !ok {
		return false, reason
	}
	return diagnosticDataPresent(dp)
}

// Compute evaluates the rules and lays them out as feature columns.
func (f *ExclusionCriteria) Compute(dp *cycler.DataPath) (*FeatureResult, error) {
	res, err := f.eval.Evaluate(dp)
	if err != nil {
		return nil, err
	}

	valueColumns := map[string]string{
		exclusion.RuleThroughputFloor: colFirstNCyclesThroughput,
		exclusion.RuleEOLReached:      colFractionalCapacityEOT,
		exclusion.RuleEFC:             colEquivalentFullCycles,
	}

	result := NewFeatureResult()
	for _, rule := range res.Rules {
		if col, ok := valueColumns[rule.Name]; ok {
			result.SetFloat(col, rule.Value)
		}
		result.SetBool(rule.Name, rule.Pass)
	}
	result.SetBool(colToInclude, res.ToInclude)
	return result, nil
}
