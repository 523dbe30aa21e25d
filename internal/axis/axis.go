// Package axis implements monotonic axis sequences (spec §4.1,
// component C2): ordered numeric axes with O(1)/O(log N) reverse
// lookup, in three storage variants (evenly spaced linear, log-spaced,
// and arbitrary monotonic data) sharing one contract.
package axis

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// Axis is the shared contract for all monotonic axis variants.
type Axis interface {
	// Size returns the number of nodes.
	Size() int
	// Value returns the node value at index i.
	Value(i int) float64
	// Increment returns value(i+1) - value(i).
	Increment(i int) float64
	// FindIndex returns the largest index i such that axis[i] <= x,
	// clamped to [0, Size()-2] for interior-interval semantics.
	FindIndex(x float64) int
}

// ErrNonMonotonicAxis is returned when successive differences in the
// input values change sign.
type ErrNonMonotonicAxis struct {
	Index int
}

func (e *ErrNonMonotonicAxis) Error() string {
	return fmt.Sprintf("axis: non-monotonic sequence at index %d", e.Index)
}

// Linear is a uniformly spaced axis: value(i) = x0 + i*delta.
type Linear struct {
	x0, delta float64
	n         int
}

// NewLinear builds a Linear axis from an explicit start, step and count.
func NewLinear(x0, delta float64, n int) (*Linear, error) {
	if n < 2 {
		return nil, fmt.Errorf("axis: need at least 2 nodes, got %d", n)
	}
	if delta == 0 {
		return nil, &ErrNonMonotonicAxis{Index: 0}
	}
	return &Linear{x0: x0, delta: delta, n: n}, nil
}

func (a *Linear) Size() int               { return a.n }
func (a *Linear) Value(i int) float64     { return a.x0 + float64(i)*a.delta }
func (a *Linear) Increment(i int) float64 { return a.delta }

func (a *Linear) FindIndex(x float64) int {
	idx := int(math.Floor((x - a.x0) / a.delta))
	return clampIndex(idx, a.n)
}

// Log is a geometrically spaced axis: value(i) = x0 * ratio^i.
type Log struct {
	x0, ratio float64
	n         int
	logX0     float64
	logRatio  float64
}

// NewLog builds a Log axis. x0 must be positive and ratio must be a
// positive, non-unity constant ratio between successive nodes.
func NewLog(x0, ratio float64, n int) (*Log, error) {
	if n < 2 {
		return nil, fmt.Errorf("axis: need at least 2 nodes, got %d", n)
	}
	if x0 <= 0 || ratio <= 0 || ratio == 1 {
		return nil, &ErrNonMonotonicAxis{Index: 0}
	}
	return &Log{x0: x0, ratio: ratio, n: n, logX0: math.Log(x0), logRatio: math.Log(ratio)}, nil
}

func (a *Log) Size() int           { return a.n }
func (a *Log) Value(i int) float64 { return a.x0 * math.Pow(a.ratio, float64(i)) }
func (a *Log) Increment(i int) float64 {
	return a.Value(i+1) - a.Value(i)
}

func (a *Log) FindIndex(x float64) int {
	if x <= 0 {
		return clampIndex(math.MinInt32, a.n)
	}
	idx := int(math.Floor((math.Log(x) - a.logX0) / a.logRatio))
	return clampIndex(idx, a.n)
}

// Data is an arbitrary strictly monotonic axis backed by explicit
// values. FindIndex performs an incremental linear scan from a cached
// last-found index, which is amortised O(1) for sequential monotonic
// queries (spec §4.1) and falls back to a full scan otherwise.
type Data struct {
	values    []float64
	ascending bool
	lastIdx   atomic.Int64
}

// NewData builds a Data axis from explicit strictly monotonic values.
func NewData(values []float64) (*Data, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("axis: need at least 2 nodes, got %d", len(values))
	}
	ascending := values[1] > values[0]
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		if diff == 0 || (diff > 0) != ascending {
			return nil, &ErrNonMonotonicAxis{Index: i}
		}
	}
	d := &Data{values: append([]float64(nil), values...), ascending: ascending}
	return d, nil
}

func (a *Data) Size() int           { return len(a.values) }
func (a *Data) Value(i int) float64 { return a.values[i] }
func (a *Data) Increment(i int) float64 {
	return a.values[i+1] - a.values[i]
}

func (a *Data) FindIndex(x float64) int {
	n := len(a.values)
	start := int(a.lastIdx.Load())
	if start < 0 || start > n-2 {
		start = n / 2
	}

	idx := start
	if a.ascending {
		for idx > 0 && a.values[idx] > x {
			idx--
		}
		for idx < n-2 && a.values[idx+1] <= x {
			idx++
		}
	} else {
		for idx > 0 && a.values[idx] < x {
			idx--
		}
		for idx < n-2 && a.values[idx+1] >= x {
			idx++
		}
	}
	idx = clampIndex(idx, n)
	a.lastIdx.Store(int64(idx))
	return idx
}

func clampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx > n-2 {
		return n - 2
	}
	return idx
}

// BuildBest recognises uniform linear (constant increment) or uniform
// log (constant ratio) structure in values and falls back to Data
// (arbitrary monotonic) otherwise. This is the factory spec §4.1 calls
// `build_best`.
func BuildBest(values []float64) (Axis, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("axis: need at least 2 nodes, got %d", len(values))
	}
	const relTol = 1e-9

	delta0 := values[1] - values[0]
	linear := delta0 != 0
	for i := 1; i < len(values)-1 && linear; i++ {
		d := values[i+1] - values[i]
		if math.Abs(d-delta0) > relTol*math.Max(1, math.Abs(delta0)) {
			linear = false
		}
	}
	if linear {
		return NewLinear(values[0], delta0, len(values))
	}

	logUniform := values[0] > 0
	var ratio0 float64
	if logUniform {
		ratio0 = values[1] / values[0]
		logUniform = ratio0 > 0 && ratio0 != 1
	}
	for i := 1; i < len(values)-1 && logUniform; i++ {
		if values[i] <= 0 {
			logUniform = false
			break
		}
		r := values[i+1] / values[i]
		if math.Abs(r-ratio0) > relTol*math.Max(1, math.Abs(ratio0)) {
			logUniform = false
		}
	}
	if logUniform {
		return NewLog(values[0], ratio0, len(values))
	}

	return NewData(values)
}

// Bounds returns the lowest and highest node values of a, regardless
// of whether a is ascending or descending — the edge-clamping range a
// grid axis spec clamps coordinates into (spec §4.2).
func Bounds(a Axis) (lo, hi float64) {
	n := a.Size()
	values := make([]float64, n)
	for i := range values {
		values[i] = a.Value(i)
	}
	return floats.Min(values), floats.Max(values)
}
