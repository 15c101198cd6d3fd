package crossing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrThresholdNotCrossed is returned when the observed series never reaches
// the threshold and extrapolation is disabled.
var ErrThresholdNotCrossed = errors.New("series has not crossed threshold and extrapolation inaccurate")

// ErrNonPositiveCrossing is returned when a resolved crossing value is not a
// positive number.
var ErrNonPositiveCrossing = errors.New("series does not have a positive value to threshold")

// DefaultGridSize is the fixed resolution of the crossing search grid.
const DefaultGridSize = 1000

// Config controls the threshold crossing search.
type Config struct {
	// Threshold is the fractional metric value to solve for.
	Threshold float64

	// FilterKinks, when positive, truncates the series before the first
	// point whose second discrete difference drops below -FilterKinks.
	// An abrupt change in degradation rate is treated as an artifact
	// rather than real degradation. Zero disables the filter.
	FilterKinks float64

	// Extrapolate allows a linear extension from the last two observed
	// points when the series has not yet reached the threshold.
	Extrapolate bool

	// GridSize is the number of samples in the search grid.
	// Zero means DefaultGridSize.
	GridSize int
}

// Solve finds, per requested axis, the x-value at which the series crosses
// the threshold.
//
// The search is an approximate nearest-sample scan, not exact root-finding:
// a piecewise-linear interpolant is evaluated on a dense uniform grid and the
// grid point minimizing |f(x) - threshold| wins. The fixed resolution trades
// exactness for robustness on noisy or non-monotonic trajectories; for a
// non-monotonic series the nearest sample can differ from the first true
// crossing.
func Solve(points []Point, axes []string, cfg Config) (map[string]float64, error) {
	gridSize := cfg.GridSize
	if gridSize <= 0 {
		gridSize = DefaultGridSize
	}

	if cfg.FilterKinks > 0 {
		points = truncateAtKink(points, cfg.FilterKinks)
	}
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 points to locate a crossing, have %d", len(points))
	}

	minY := math.Inf(1)
	for _, p := range points {
		if !math.IsNaN(p.FractionalMetric) {
			minY = math.Min(minY, p.FractionalMetric)
		}
	}

	crossed := minY <= cfg.Threshold
	if !crossed && !cfg.Extrapolate {
		return nil, ErrThresholdNotCrossed
	}

	out := make(map[string]float64, len(axes))
	for _, axis := range axes {
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			x, ok := p.Axes[axis]
			if !ok {
				return nil, fmt.Errorf("series points carry no axis %q", axis)
			}
			xs[i] = x
			ys[i] = p.FractionalMetric
		}

		gridEnd := floats.Max(xs)
		if !crossed {
			// Aim past the threshold by a 0.1 margin so the grid
			// reliably brackets the crossing despite the linear
			// extension undershooting a convex trajectory.
			y1, y2 := ys[len(ys)-2], ys[len(ys)-1]
			x1, x2 := xs[len(xs)-2], xs[len(xs)-1]
			gridEnd = (cfg.Threshold-0.1-y1)*(x2-x1)/(y2-y1) + x1
		}

		interp, err := newLinearInterp(xs, ys, !crossed)
		if err != nil {
			return nil, err
		}

		grid := linspace(floats.Min(xs), gridEnd, gridSize)
		bestIdx := 0
		bestDist := math.Inf(1)
		for i, x := range grid {
			y, err := interp.at(x)
			if err != nil {
				return nil, err
			}
			if d := math.Abs(y - cfg.Threshold); d < bestDist {
				bestDist = d
				bestIdx = i
			}
		}
		out[axis] = grid[bestIdx]
	}

	for axis, x := range out {
		if !(x > 0) {
			return nil, fmt.Errorf("%w: axis %q resolved to %v", ErrNonPositiveCrossing, axis, x)
		}
	}
	return out, nil
}

// SolveSeries runs Solve over a fractional series and, when the normalized
// throughput axis participates, derives the corresponding real throughput by
// scaling with the series' initial throughput.
func SolveSeries(s Series, axes []string, cfg Config) (map[string]float64, error) {
	out, err := Solve(s.Points, axes, cfg)
	if err != nil {
		return nil, err
	}
	if x, ok := out[AxisNormalizedThroughput]; ok {
		out[AxisRealThroughput] = x * s.InitialRegularThroughput
	}
	return out, nil
}

// truncateAtKink keeps all points strictly before the first one whose second
// discrete difference of the fractional metric drops below -magnitude.
func truncateAtKink(points []Point, magnitude float64) []Point {
	for i := 2; i < len(points); i++ {
		d2 := points[i].FractionalMetric - 2*points[i-1].FractionalMetric + points[i-2].FractionalMetric
		if d2 < -magnitude {
			return points[:i]
		}
	}
	return points
}

// linearInterp is a piecewise-linear interpolant over sorted breakpoints.
// With extrapolate set, queries beyond the observed range extend the boundary
// segment linearly; otherwise they are an error.
type linearInterp struct {
	xs, ys      []float64
	extrapolate bool
}

func newLinearInterp(xs, ys []float64, extrapolate bool) (*linearInterp, error) {
	if len(xs) != len(ys) || len(xs) < 2 {
		return nil, fmt.Errorf("interpolant needs matching x/y with >= 2 points, have %d/%d", len(xs), len(ys))
	}
	// Breakpoints must be ascending for segment search; the axes are
	// monotone for well-formed runs but sorting keeps degenerate input
	// from corrupting the search.
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	li := &linearInterp{
		xs:          make([]float64, len(xs)),
		ys:          make([]float64, len(ys)),
		extrapolate: extrapolate,
	}
	for i, j := range idx {
		li.xs[i] = xs[j]
		li.ys[i] = ys[j]
	}
	return li, nil
}

func (li *linearInterp) at(x float64) (float64, error) {
	n := len(li.xs)
	if x < li.xs[0] || x > li.xs[n-1] {
		if !li.extrapolate {
			return 0, fmt.Errorf("x=%v outside interpolation range [%v, %v]", x, li.xs[0], li.xs[n-1])
		}
		if x < li.xs[0] {
			return extendSegment(li.xs[0], li.ys[0], li.xs[1], li.ys[1], x), nil
		}
		return extendSegment(li.xs[n-2], li.ys[n-2], li.xs[n-1], li.ys[n-1], x), nil
	}

	j := sort.SearchFloat64s(li.xs, x)
	if j < n && li.xs[j] == x {
		return li.ys[j], nil
	}
	// j is the first breakpoint above x; interpolate on [j-1, j].
	return extendSegment(li.xs[j-1], li.ys[j-1], li.xs[j], li.ys[j], x), nil
}

func extendSegment(x1, y1, x2, y2, x float64) float64 {
	if x2 == x1 {
		return y1
	}
	return y1 + (y2-y1)*(x-x1)/(x2-x1)
}

func linspace(start, end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = end
	return out
}
