package featurizer

import (
	"github.com/planbiir/cyclefeat/internal/cycler"
	"go.uber.org/zap"
)

// RunResult records one extractor's outcome: a feature table, a validation
// refusal with its reason, or a compute error.
type RunResult struct {
	Name     string
	Skipped  bool
	Reason   string
	Features *FeatureResult
	Err      error
}

// Runner drives a set of extractors over one run, isolating failures so a
// broken extractor never costs the others their output.
type Runner struct {
	log *zap.Logger
}

// NewRunner builds a runner. A nil logger disables logging.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Run validates and computes each extractor in order, returning one result
// per extractor.
func (r *Runner) Run(dp *cycler.DataPath, featurizers []Featurizer) []RunResult {
	results := make([]RunResult, 0, len(featurizers))
	for _, f := range featurizers {
		res := RunResult{Name: f.Name()}

		if ok, reason := f.Validate(dp); !ok {
			res.Skipped = true
			res.Reason = reason
			r.log.Info("featurizer skipped",
				zap.String("featurizer", res.Name),
				zap.String("reason", reason))
			results = append(results, res)
			continue
		}

		features, err := f.Compute(dp)
		if err != nil {
			res.Err = err
			r.log.Error("featurizer failed",
				zap.String("featurizer", res.Name),
				zap.Error(err))
			results = append(results, res)
			continue
		}

		res.Features = features
		r.log.Info("featurizer computed",
			zap.String("featurizer", res.Name),
			zap.Int("columns", features.Len()))
		results = append(results, res)
	}
	return results
}
