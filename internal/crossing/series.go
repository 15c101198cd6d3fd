// Package crossing locates degradation milestones: it builds per-diagnostic
// fractional metric series and solves for the point at which such a series
// crosses a threshold fraction of its initial value.
package crossing

import (
	"fmt"
	"math"

	"github.com/planbiir/cyclefeat/internal/cycler"
)

// Axis names used on series points.
const (
	AxisNormalizedThroughput = "normalized_regular_throughput"
	AxisCycleIndex           = "cycle_index"
	AxisRealThroughput       = "real_regular_throughput"
)

// Point is one diagnostic occurrence on a degradation trajectory: a shared
// fractional metric value plus one x-value per interpolation axis.
type Point struct {
	CycleIndex       int
	FractionalMetric float64
	Axes             map[string]float64
}

// Series is the ordered trajectory of one (quantity, cycle type) pair.
type Series struct {
	CycleType string
	Metric    string

	// InitialRegularThroughput is the cumulative regular-cycle charge
	// throughput at the first diagnostic occurrence; the normalization
	// base for the throughput axis.
	InitialRegularThroughput float64

	Points []Point
}

// BuildFractionalSeries derives the degradation trajectory of one quantity
// over the occurrences of one diagnostic cycle type. The fractional metric is
// each occurrence's value over the first occurrence's value; the throughput
// axis is the regular-cycle charge throughput accumulated by each occurrence,
// normalized by its value at the first occurrence.
func BuildFractionalSeries(dp *cycler.DataPath, quantity, cycleType string) (Series, error) {
	occurrences := dp.DiagnosticSummary.OfType(cycleType)
	if len(occurrences) == 0 {
		return Series{}, fmt.Errorf("cycle type %q not present in diagnostic summary", cycleType)
	}

	initial, ok := occurrences[0].Metric(quantity)
	if !ok {
		return Series{}, fmt.Errorf("unknown diagnostic summary column %q", quantity)
	}

	s := Series{
		CycleType:                cycleType,
		Metric:                   quantity,
		InitialRegularThroughput: throughputBefore(dp.StructuredSummary, occurrences[0].CycleIndex),
	}

	for _, occ := range occurrences {
		v, _ := occ.Metric(quantity)
		throughput := throughputBefore(dp.StructuredSummary, occ.CycleIndex)
		s.Points = append(s.Points, Point{
			CycleIndex:       occ.CycleIndex,
			FractionalMetric: v / initial,
			Axes: map[string]float64{
				AxisCycleIndex:           float64(occ.CycleIndex),
				AxisNormalizedThroughput: throughput / s.InitialRegularThroughput,
			},
		})
	}
	return s, nil
}

// throughputBefore returns the last known cumulative charge throughput at or
// before the given cycle, skipping NaN entries (throughput is cumulative, so
// the last finite value carries forward).
func throughputBefore(summary cycler.Summary, cycleIndex int) float64 {
	out := math.NaN()
	for _, row := range summary {
		if row.CycleIndex > cycleIndex {
			break
		}
		if !math.IsNaN(row.ChargeThroughput) {
			out = row.ChargeThroughput
		}
	}
	return out
}
