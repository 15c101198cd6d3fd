// Package exclusion decides whether a cycler run is clean enough to include
// in end-of-life analysis, by evaluating independent data-quality rules and
// combining their outcomes.
package exclusion

import (
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/planbiir/cyclefeat/internal/crossing"
	"github.com/planbiir/cyclefeat/internal/cycler"
	"github.com/planbiir/cyclefeat/internal/protocol"
)

// Rule flag names, also used as feature column names.
const (
	RuleThroughputFloor = "is_above_first_n_cycles_throughput"
	RuleEOLReached      = "is_below_fractional_capacity_at_EOT"
	RuleEFC             = "is_above_equivalent_full_cycles_at_EOL"
	RuleNotEarlyCV      = "is_not_early_CV"
)

// Config tunes the exclusion rules.
type Config struct {
	// EOL definition: the diagnostic cycle type and quantity whose
	// fractional value crossing EOLThreshold marks end of life.
	EOLCycleType string
	EOLQuantity  string
	EOLThreshold float64

	// Throughput floor: charge throughput at cycle ThroughputCycle must
	// exceed ThroughputCutoff (Ah).
	ThroughputCycle  int
	ThroughputCutoff float64

	// EquivalentFullCyclesCutoff is the minimum EFC count a run must have
	// accumulated by EOL.
	EquivalentFullCyclesCutoff float64

	// EarlyCVCutoff is the fraction of cycle duration below which a CV
	// onset counts as early.
	EarlyCVCutoff float64

	// ParametersDir is the charging-protocol parameter file store.
	ParametersDir string
}

// DefaultConfig returns the standard exclusion rule settings.
func DefaultConfig() Config {
	return Config{
		EOLCycleType:               "rpt_0.2C",
		EOLQuantity:                "discharge_capacity",
		EOLThreshold:               0.8,
		ThroughputCycle:            30,
		ThroughputCutoff:           20,
		EquivalentFullCyclesCutoff: 30,
		EarlyCVCutoff:              0.3,
	}
}

// RuleResult is one rule's verdict plus the quantity it was judged on.
type RuleResult struct {
	Name  string
	Value float64 // underlying numeric quantity; NaN when not applicable
	Pass  bool
}

// Result is the combined evaluation of one run.
type Result struct {
	Rules     []RuleResult
	ToInclude bool
}

// Combine ANDs the rule outcomes into the final inclusion flag.
func Combine(rules []RuleResult) bool {
	for _, r := range rules {
		if !r.Pass {
			return false
		}
	}
	return true
}

// Evaluator applies the exclusion rules to one run.
type Evaluator struct {
	cfg    Config
	lookup protocol.LookupFunc
}

// New builds an evaluator. A nil lookup falls back to the file-backed
// protocol lookup.
func New(cfg Config, lookup protocol.LookupFunc) *Evaluator {
	if lookup == nil {
		lookup = protocol.Lookup
	}
	return &Evaluator{cfg: cfg, lookup: lookup}
}

// Evaluate runs all rules over the run and ANDs their outcomes.
func (e *Evaluator) Evaluate(dp *cycler.DataPath) (Result, error) {
	series, err := crossing.BuildFractionalSeries(dp, e.cfg.EOLQuantity, e.cfg.EOLCycleType)
	if err != nil {
		return Result{}, fmt.Errorf("end-of-life series: %w", err)
	}

	throughput := e.throughputFloorRule(dp)
	eol := e.eolRule(series)
	cutoffCycle := e.cutoffCycle(series, eol.Pass)

	efc, err := e.equivalentFullCyclesRule(dp, cutoffCycle)
	if err != nil {
		return Result{}, err
	}
	earlyCV, err := e.earlyCVRule(dp, cutoffCycle)
	if err != nil {
		return Result{}, err
	}

	rules := []RuleResult{throughput, eol, efc, earlyCV}
	return Result{Rules: rules, ToInclude: Combine(rules)}, nil
}

// throughputFloorRule checks the charge throughput accumulated by an early
// reference cycle. A NaN (or absent) value counts as zero throughput.
func (e *Evaluator) throughputFloorRule(dp *cycler.DataPath) RuleResult {
	value := 0.0
	if row, ok := dp.StructuredSummary.ByCycle(e.cfg.ThroughputCycle); ok && !math.IsNaN(row.ChargeThroughput) {
		value = row.ChargeThroughput
	}
	return RuleResult{
		Name:  RuleThroughputFloor,
		Value: value,
		Pass:  value > e.cfg.ThroughputCutoff,
	}
}

// eolRule checks that the run actually degraded below the EOL threshold by
// the end of testing. The fractional series is forward-filled and the last
// value examined; a last value above 1 is a data-quality artifact (a final
// diagnostic recorded against the wrong baseline) and the second-to-last
// value is used instead.
func (e *Evaluator) eolRule(series crossing.Series) RuleResult {
	filled := make([]float64, len(series.Points))
	last := math.NaN()
	for i, p := range series.Points {
		if !math.IsNaN(p.FractionalMetric) {
			last = p.FractionalMetric
		}
		filled[i] = last
	}

	value := math.NaN()
	if n := len(filled); n > 0 {
		value = filled[n-1]
		if value > 1 && n > 1 {
			value = filled[n-2]
		}
	}
	return RuleResult{
		Name:  RuleEOLReached,
		Value: value,
		Pass:  value < e.cfg.EOLThreshold,
	}
}

// cutoffCycle is the cycle index bounding the pre-EOL portion of the run:
// the first diagnostic below threshold when EOL was reached, otherwise the
// last diagnostic.
func (e *Evaluator) cutoffCycle(series crossing.Series, eolReached bool) int {
	if eolReached {
		for _, p := range series.Points {
			if p.FractionalMetric < e.cfg.EOLThreshold {
				return p.CycleIndex
			}
		}
	}
	return series.Points[len(series.Points)-1].CycleIndex
}

// equivalentFullCyclesRule normalizes the charge throughput accumulated by
// EOL with the cell's nominal capacity and checks the resulting cycle count.
func (e *Evaluator) equivalentFullCyclesRule(dp *cycler.DataPath, cutoffCycle int) (RuleResult, error) {
	nominal, err := e.nominalCapacity(dp)
	if err != nil {
		return RuleResult{}, err
	}

	// Forward-fill the cumulative throughput up to the last regular cycle
	// at or before the cutoff.
	throughput := math.NaN()
	for _, row := range dp.StructuredSummary {
		if row.CycleIndex > cutoffCycle {
			break
		}
		if !math.IsNaN(row.ChargeThroughput) {
			throughput = row.ChargeThroughput
		}
	}

	efc := throughput / nominal
	return RuleResult{
		Name:  RuleEFC,
		Value: efc,
		Pass:  efc > e.cfg.EquivalentFullCyclesCutoff,
	}, nil
}

// nominalCapacity reads the nominal capacity from the structuring parameters
// when present, otherwise from the protocol parameter store.
func (e *Evaluator) nominalCapacity(dp *cycler.DataPath) (float64, error) {
	if raw, ok := dp.StructuringParameters["nominal_capacity"]; ok && raw != nil {
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return 0, fmt.Errorf("structuring parameter nominal_capacity: %w", err)
		}
		return v, nil
	}

	params, err := e.protocolParameters(dp)
	if err != nil {
		return 0, err
	}
	return params.Float("capacity_nominal")
}

// earlyCVRule flags runs whose charge step hits constant voltage suspiciously
// early. It only applies to protocols whose first constant-current phase runs
// at lower current than the second; otherwise the CV onset carries no signal
// and the rule passes trivially. Fails fast on the first offending cycle.
func (e *Evaluator) earlyCVRule(dp *cycler.DataPath, cutoffCycle int) (RuleResult, error) {
	params, err := e.protocolParameters(dp)
	if err != nil {
		return RuleResult{}, err
	}
	cc1, err := params.Float("charge_constant_current_1")
	if err != nil {
		return RuleResult{}, err
	}
	cc2, err := params.Float("charge_constant_current_2")
	if err != nil {
		return RuleResult{}, err
	}

	if cc1 <= cc2 {
		return RuleResult{Name: RuleNotEarlyCV, Value: math.NaN(), Pass: true}, nil
	}

	for _, row := range dp.StructuredSummary {
		if row.CycleIndex > cutoffCycle {
			break
		}
		cycleData := dp.StructuredData.ForCycle(row.CycleIndex)
		cv := cycler.CVSegmentFromCharge(cycleData.WithStepType(cycler.StepCharge))
		if len(cv) == 0 {
			continue
		}

		start, end := timeBounds(cycleData)
		if !(end > start) {
			continue
		}
		onsetFrac := (cv[0].TestTime - start) / (end - start)
		if onsetFrac < e.cfg.EarlyCVCutoff {
			return RuleResult{Name: RuleNotEarlyCV, Value: onsetFrac, Pass: false}, nil
		}
	}
	return RuleResult{Name: RuleNotEarlyCV, Value: math.NaN(), Pass: true}, nil
}

func (e *Evaluator) protocolParameters(dp *cycler.DataPath) (protocol.Parameters, error) {
	filePath, ok := dp.ProtocolFilePath()
	if !ok {
		return protocol.Parameters{}, fmt.Errorf("datapath paths not set, unable to fetch charging protocol")
	}
	return e.lookup(filePath, e.cfg.ParametersDir)
}

func timeBounds(ts cycler.TimeSeries) (start, end float64) {
	start, end = math.Inf(1), math.Inf(-1)
	for _, r := range ts {
		if math.IsNaN(r.TestTime) {
			continue
		}
		start = math.Min(start, r.TestTime)
		end = math.Max(end, r.TestTime)
	}
	return start, end
}
