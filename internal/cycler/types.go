package cycler

// StepType distinguishes the two halves of a cycle.
type StepType string

const (
	StepCharge    StepType = "charge"
	StepDischarge StepType = "discharge"
)

// Row is one interpolated sample of a structured cycler time series.
// Missing values are NaN.
type Row struct {
	CycleIndex       int
	StepIndex        int
	StepIndexCounter int
	TestTime         float64 // seconds since start of test
	StepType         StepType
	CycleType        string // diagnostic cycle type tag; empty on regular cycles

	Voltage float64 // V
	Current float64 // A

	ChargeCapacity    float64 // Ah
	DischargeCapacity float64 // Ah
	ChargeEnergy      float64 // Wh
	DischargeEnergy   float64 // Wh
	ChargeDQdV        float64
	DischargeDQdV     float64
	Temperature       float64 // degC
}

// TimeSeries is an ordered sequence of samples grouped by
// (cycle_index, step_index, step_index_counter).
type TimeSeries []Row

// SummaryRow aggregates one regular cycle.
type SummaryRow struct {
	CycleIndex int

	ChargeCapacity    float64
	DischargeCapacity float64
	ChargeEnergy      float64
	DischargeEnergy   float64

	ChargeThroughput float64 // cumulative Ah charged since start of test
	EnergyThroughput float64 // cumulative Wh since start of test
	ChargeDuration   float64 // seconds

	TemperatureMinimum float64
	TemperatureMaximum float64

	DCInternalResistance      float64
	TimeTemperatureIntegrated float64
}

// Summary is one row per regular cycle, ordered by cycle index.
type Summary []SummaryRow

// DiagnosticSummaryRow aggregates one diagnostic cycle occurrence.
type DiagnosticSummaryRow struct {
	SummaryRow
	CycleType string // e.g. "rpt_0.2C", "hppc"
}

// DiagnosticSummary is one row per diagnostic occurrence, ordered by cycle index.
type DiagnosticSummary []DiagnosticSummaryRow

// TimeSeriesColumns names the metric columns addressable on a Row.
var TimeSeriesColumns = map[string]bool{
	"test_time":          true,
	"voltage":            true,
	"current":            true,
	"charge_capacity":    true,
	"discharge_capacity": true,
	"charge_energy":      true,
	"discharge_energy":   true,
	"charge_dQdV":        true,
	"discharge_dQdV":     true,
	"temperature":        true,
	"cycle_index":        true,
}

// SummaryColumns names the metric columns addressable on a SummaryRow.
var SummaryColumns = map[string]bool{
	"cycle_index":                 true,
	"charge_capacity":             true,
	"discharge_capacity":          true,
	"charge_energy":               true,
	"discharge_energy":            true,
	"charge_throughput":           true,
	"energy_throughput":           true,
	"charge_duration":             true,
	"temperature_minimum":         true,
	"temperature_maximum":         true,
	"dc_internal_resistance":      true,
	"time_temperature_integrated": true,
}

// Metric returns the named column value of the sample.
func (r Row) Metric(name string) (float64, bool) {
	switch name {
	case "test_time":
		return r.TestTime, true
	case "voltage":
		return r.Voltage, true
	case "current":
		return r.Current, true
	case "charge_capacity":
		return r.ChargeCapacity, true
	case "discharge_capacity":
		return r.DischargeCapacity, true
	case "charge_energy":
		return r.ChargeEnergy, true
	case "discharge_energy":
		return r.DischargeEnergy, true
	case "charge_dQdV":
		return r.ChargeDQdV, true
	case "discharge_dQdV":
		return r.DischargeDQdV, true
	case "temperature":
		return r.Temperature, true
	case "cycle_index":
		return float64(r.CycleIndex), true
	}
	return 0, false
}

// Metric returns the named aggregate column value of the summary row.
func (s SummaryRow) Metric(name string) (float64, bool) {
	switch name {
	case "cycle_index":
		return float64(s.CycleIndex), true
	case "charge_capacity":
		return s.ChargeCapacity, true
	case "discharge_capacity":
		return s.DischargeCapacity, true
	case "charge_energy":
		return s.ChargeEnergy, true
	case "discharge_energy":
		return s.DischargeEnergy, true
	case "charge_throughput":
		return s.ChargeThroughput, true
	case "energy_throughput":
		return s.EnergyThroughput, true
	case "charge_duration":
		return s.ChargeDuration, true
	case "temperature_minimum":
		return s.TemperatureMinimum, true
	case "temperature_maximum":
		return s.TemperatureMaximum, true
	case "dc_internal_resistance":
		return s.DCInternalResistance, true
	case "time_temperature_integrated":
		return s.TimeTemperatureIntegrated, true
	}
	return 0, false
}

// ForCycle returns the samples belonging to one cycle, order preserved.
func (ts TimeSeries) ForCycle(cycleIndex int) TimeSeries {
	var out TimeSeries
	for _, r := range ts {
		if r.CycleIndex == cycleIndex {
			out = append(out, r)
		}
	}
	return out
}

// WithStepType keeps only samples of the given step type.
func (ts TimeSeries) WithStepType(st StepType) TimeSeries {
	var out TimeSeries
	for _, r := range ts {
		if r.StepType == st {
			out = append(out, r)
		}
	}
	return out
}

// OfCycleType keeps only samples tagged with the given diagnostic cycle type.
func (ts TimeSeries) OfCycleType(cycleType string) TimeSeries {
	var out TimeSeries
	for _, r := range ts {
		if r.CycleType == cycleType {
			out = append(out, r)
		}
	}
	return out
}

// CycleIndices returns the distinct cycle indices in order of first appearance.
func (ts TimeSeries) CycleIndices() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range ts {
		if !seen[r.CycleIndex] {
			seen[r.CycleIndex] = true
			out = append(out, r.CycleIndex)
		}
	}
	return out
}

// StepIndices returns the distinct step indices in order of first appearance.
func (ts TimeSeries) StepIndices() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range ts {
		if !seen[r.StepIndex] {
			seen[r.StepIndex] = true
			out = append(out, r.StepIndex)
		}
	}
	return out
}

// MetricValues extracts one column as a slice, row order preserved.
// The second return reports whether the column name is known.
func (ts TimeSeries) MetricValues(name string) ([]float64, bool) {
	if !TimeSeriesColumns[name] {
		return nil, false
	}
	out := make([]float64, len(ts))
	for i, r := range ts {
		out[i], _ = r.Metric(name)
	}
	return out, true
}

// ByCycle returns the summary row for a cycle index.
func (s Summary) ByCycle(cycleIndex int) (SummaryRow, bool) {
	for _, row := range s {
		if row.CycleIndex == cycleIndex {
			return row, true
		}
	}
	return SummaryRow{}, false
}

// MinCycleIndex returns the smallest cycle index in the summary.
func (s Summary) MinCycleIndex() int {
	if len(s) == 0 {
		return 0
	}
	m := s[0].CycleIndex
	for _, row := range s[1:] {
		m = min(m, row.CycleIndex)
	}
	return m
}

// MaxCycleIndex returns the largest cycle index in the summary.
func (s Summary) MaxCycleIndex() int {
	if len(s) == 0 {
		return 0
	}
	m := s[0].CycleIndex
	for _, row := range s[1:] {
		m = max(m, row.CycleIndex)
	}
	return m
}

// OfType keeps diagnostic occurrences of one cycle type, order preserved.
func (d DiagnosticSummary) OfType(cycleType string) DiagnosticSummary {
	var out DiagnosticSummary
	for _, row := range d {
		if row.CycleType == cycleType {
			out = append(out, row)
		}
	}
	return out
}

// CycleTypes returns the distinct cycle type labels in order of first appearance.
func (d DiagnosticSummary) CycleTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range d {
		if !seen[row.CycleType] {
			seen[row.CycleType] = true
			out = append(out, row.CycleType)
		}
	}
	return out
}
