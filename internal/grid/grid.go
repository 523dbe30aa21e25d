// Package grid implements the N-D interpolating grid (spec §4.2,
// component C3): N monotonic axes plus a dense row-major value array,
// with per-axis interpolation kind (nearest/linear/pchip) and edge
// policy (clamp/extrapolate).
//
// PCHIP uses gonum's Fritsch-Carlson-style monotonic cubic Hermite
// (gonum.org/v1/gonum/interp.FritschButland), matching the teacher
// repo's habit of reaching for gonum numerics rather than hand-rolling
// them (internal/db/db.go imports gonum.org/v1/gonum/stat).
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/interp"

	"github.com/banshee-data/deepreverb/internal/axis"
)

// InterpKind selects the per-axis interpolation method.
type InterpKind int

const (
	Nearest InterpKind = iota
	Linear
	Pchip
)

// EdgeLimit selects the per-axis out-of-range policy.
type EdgeLimit int

const (
	// Clamp holds the boundary value (or, for derivatives, the boundary
	// slope) for coordinates outside the axis range.
	Clamp EdgeLimit = iota
	// Extrapolate continues the boundary segment's linear trend past
	// the axis range.
	Extrapolate
)

// AxisSpec pairs a monotonic axis with its interpolation kind and edge
// policy.
type AxisSpec struct {
	Axis  axis.Axis
	Kind  InterpKind
	Edge  EdgeLimit
}

// NewAxisSpec builds an AxisSpec whose edge policy defaults to Clamp
// for every interpolation kind. WithEdge overrides it, except that New
// rejects a Pchip axis set to Extrapolate.
func NewAxisSpec(a axis.Axis, kind InterpKind) AxisSpec {
	return AxisSpec{Axis: a, Kind: kind, Edge: Clamp}
}

// WithEdge returns a copy of s with the edge policy overridden.
func (s AxisSpec) WithEdge(e EdgeLimit) AxisSpec {
	s.Edge = e
	return s
}

// Grid is an N-dimensional interpolating grid over rectilinear axes.
type Grid struct {
	axes []AxisSpec
	data []float64
}

// New builds a Grid. data must be row-major with length equal to the
// product of each axis's Size().
func New(axes []AxisSpec, data []float64) (*Grid, error) {
	if len(axes) == 0 {
		return nil, fmt.Errorf("grid: need at least one axis")
	}
	want := 1
	for _, a := range axes {
		want *= a.Axis.Size()
	}
	if len(data) != want {
		return nil, fmt.Errorf("grid: data length %d does not match axes product %d", len(data), want)
	}
	for i, a := range axes {
		if a.Kind == Pchip && a.Edge == Extrapolate {
			return nil, fmt.Errorf("grid: axis %d is pchip with edge=extrapolate; pchip must be paired with clamp", i)
		}
	}
	return &Grid{axes: append([]AxisSpec(nil), axes...), data: data}, nil
}

// NDims returns the number of axes.
func (g *Grid) NDims() int { return len(g.axes) }

// Axes exposes the per-axis specs (read-only use).
func (g *Grid) Axes() []AxisSpec { return g.axes }

func (g *Grid) strides() []int {
	s := make([]int, len(g.axes))
	acc := 1
	for i := len(g.axes) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= g.axes[i].Axis.Size()
	}
	return s
}

// Interpolate returns the grid value at coords, and if gradient is
// non-nil, fills it with the per-axis partial derivative.
func (g *Grid) Interpolate(coords []float64, gradient []float64) (float64, error) {
	if len(coords) != len(g.axes) {
		return 0, fmt.Errorf("grid: coords length %d does not match %d axes", len(coords), len(g.axes))
	}
	strides := g.strides()
	v := g.evaluate(coords, strides, nil, -1)
	if gradient != nil {
		if len(gradient) != len(g.axes) {
			return 0, fmt.Errorf("grid: gradient length %d does not match %d axes", len(gradient), len(g.axes))
		}
		for k := range g.axes {
			gradient[k] = g.evaluate(coords, strides, nil, k)
		}
	}
	return v, nil
}

// evaluate computes the plain value (derivAxis==-1) or the partial
// derivative with respect to axis derivAxis, by recursing outer axis
// (0) to inner axis (len-1) and collapsing one dimension per call.
func (g *Grid) evaluate(coords []float64, strides []int, fixed []int, derivAxis int) float64 {
	axisIdx := len(fixed)
	if axisIdx == len(g.axes) {
		offset := 0
		for i, idx := range fixed {
			offset += idx * strides[i]
		}
		return g.data[offset]
	}

	spec := g.axes[axisIdx]
	x := g.clampCoord(spec, coords[axisIdx])
	wantDeriv := axisIdx == derivAxis

	switch spec.Kind {
	case Nearest:
		idx := nearestIndex(spec.Axis, x)
		if wantDeriv {
			return 0
		}
		return g.evaluate(coords, strides, withIndex(fixed, idx), derivAxis)

	case Linear:
		i := spec.Axis.FindIndex(x)
		dx := spec.Axis.Increment(i)
		if wantDeriv {
			// Slope of the lerp w.r.t. this axis, using the PLAIN values
			// at its two bracketing nodes (inner axes below axisIdx are
			// unaffected since derivAxis==axisIdx can't match them).
			v0 := g.evaluate(coords, strides, withIndex(fixed, i), -1)
			v1 := g.evaluate(coords, strides, withIndex(fixed, i+1), -1)
			return (v1 - v0) / dx
		}
		v0 := g.evaluate(coords, strides, withIndex(fixed, i), derivAxis)
		v1 := g.evaluate(coords, strides, withIndex(fixed, i+1), derivAxis)
		t := (x - spec.Axis.Value(i)) / dx
		return (1-t)*v0 + t*v1

	case Pchip:
		n := spec.Axis.Size()
		xs := make([]float64, n)
		ys := make([]float64, n)
		for idx := 0; idx < n; idx++ {
			xs[idx] = spec.Axis.Value(idx)
			ys[idx] = g.evaluate(coords, strides, withIndex(fixed, idx), derivAxisOrPlain(wantDeriv, derivAxis))
		}
		var fb interp.FritschButland
		if err := fb.Fit(xs, ys); err != nil {
			// Degenerate fit (e.g. non-finite inputs); fall back to the
			// nearest sample rather than propagating a panic up the
			// propagator per spec §7's no-exceptions contract.
			idx := nearestIndex(spec.Axis, x)
			return ys[idx]
		}
		if wantDeriv {
			if dp, ok := interface{}(&fb).(interface{ PredictDerivative(float64) float64 }); ok {
				return dp.PredictDerivative(x)
			}
			return 0
		}
		return fb.Predict(x)
	}
	return 0
}

// derivAxisOrPlain threads "we want the derivative of the OUTER axis
// being resolved" down into inner recursion: once we've decided THIS
// axis (axisIdx) is the pchip axis we differentiate, inner axes should
// just be evaluated as plain values (their own index is already fixed),
// so the derivative request does not apply further down.
func derivAxisOrPlain(wantDeriv bool, derivAxis int) int {
	if wantDeriv {
		return -1
	}
	return derivAxis
}

func (g *Grid) clampCoord(spec AxisSpec, x float64) float64 {
	if spec.Edge != Clamp {
		return x
	}
	lo, hi := axis.Bounds(spec.Axis)
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// withIndex returns a copy of fixed with idx appended, never aliasing
// fixed's backing array (sibling recursive branches must not see each
// other's appends).
func withIndex(fixed []int, idx int) []int {
	out := make([]int, len(fixed)+1)
	copy(out, fixed)
	out[len(fixed)] = idx
	return out
}

func nearestIndex(a axis.Axis, x float64) int {
	i := a.FindIndex(x)
	lo, hi := a.Value(i), a.Value(i+1)
	if x-lo <= hi-x {
		return i
	}
	return i + 1
}
