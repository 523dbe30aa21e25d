package grid

import (
	"testing"

	"github.com/banshee-data/deepreverb/internal/axis"
	"github.com/banshee-data/deepreverb/internal/rvbtest"
)

func build1D(t *testing.T, kind InterpKind, xs, ys []float64) *Grid {
	t.Helper()
	a, err := axis.BuildBest(xs)
	if err != nil {
		t.Fatal(err)
	}
	g, err := New([]AxisSpec{NewAxisSpec(a, kind)}, ys)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestLinearInterpolation1D(t *testing.T) {
	g := build1D(t, Linear, []float64{0, 1, 2, 3}, []float64{0, 10, 20, 30})
	v, err := g.Interpolate([]float64{1.5}, nil)
	rvbtest.AssertNoError(t, err)
	rvbtest.AssertNear(t, v, 15, 1e-9, "linear midpoint")
}

func TestNearestInterpolation1D(t *testing.T) {
	g := build1D(t, Nearest, []float64{0, 1, 2, 3}, []float64{0, 10, 20, 30})
	v, err := g.Interpolate([]float64{1.9}, nil)
	rvbtest.AssertNoError(t, err)
	rvbtest.AssertNear(t, v, 20, 1e-9, "nearest rounds to 2")
}

func TestPchipReproducesNodeValues(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4}
	ys := []float64{0, 1, 4, 9, 16}
	g := build1D(t, Pchip, xs, ys)
	for i, x := range xs {
		v, err := g.Interpolate([]float64{x}, nil)
		rvbtest.AssertNoError(t, err)
		rvbtest.AssertNear(t, v, ys[i], 1e-9, "pchip node reproduction")
	}
}

func TestClampEdgePolicy(t *testing.T) {
	g := build1D(t, Linear, []float64{0, 1, 2}, []float64{0, 10, 20})
	v, err := g.Interpolate([]float64{100}, nil)
	rvbtest.AssertNoError(t, err)
	rvbtest.AssertNear(t, v, 20, 1e-9, "clamp caps at boundary value")
}

func TestExtrapolateEdgePolicy(t *testing.T) {
	a, _ := axis.BuildBest([]float64{0, 1, 2})
	spec := NewAxisSpec(a, Linear).WithEdge(Extrapolate)
	g, err := New([]AxisSpec{spec}, []float64{0, 10, 20})
	if err != nil {
		t.Fatal(err)
	}
	v, err := g.Interpolate([]float64{3}, nil)
	rvbtest.AssertNoError(t, err)
	rvbtest.AssertNear(t, v, 30, 1e-9, "extrapolate continues boundary slope")
}

func TestPchipRejectsExtrapolateAtConstruction(t *testing.T) {
	a, _ := axis.BuildBest([]float64{0, 1, 2})
	spec := NewAxisSpec(a, Pchip).WithEdge(Extrapolate)
	_, err := New([]AxisSpec{spec}, []float64{0, 1, 4})
	if err == nil {
		t.Fatal("expected construction error for pchip+extrapolate")
	}
}

func TestGradientLinear2D(t *testing.T) {
	xAxis, _ := axis.BuildBest([]float64{0, 1, 2})
	yAxis, _ := axis.BuildBest([]float64{0, 1, 2})
	// f(x,y) = 2x + 3y
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = 2*float64(i) + 3*float64(j)
		}
	}
	g, err := New([]AxisSpec{NewAxisSpec(xAxis, Linear), NewAxisSpec(yAxis, Linear)}, data)
	if err != nil {
		t.Fatal(err)
	}
	grad := make([]float64, 2)
	v, err := g.Interpolate([]float64{0.5, 0.5}, grad)
	rvbtest.AssertNoError(t, err)
	rvbtest.AssertNear(t, v, 2*0.5+3*0.5, 1e-9, "bilinear value")
	rvbtest.AssertNear(t, grad[0], 2, 1e-9, "d/dx")
	rvbtest.AssertNear(t, grad[1], 3, 1e-9, "d/dy")
}

func TestNewRejectsMismatchedDataLength(t *testing.T) {
	a, _ := axis.BuildBest([]float64{0, 1, 2})
	if _, err := New([]AxisSpec{NewAxisSpec(a, Linear)}, []float64{0, 1}); err == nil {
		t.Fatal("expected data-length mismatch error")
	}
}

func TestPchipMonotonicNoOvershoot(t *testing.T) {
	xs := []float64{0, 1, 2, 3}
	ys := []float64{0, 0, 1, 1} // monotonic step-ish data
	g := build1D(t, Pchip, xs, ys)
	// Monotone cubic Hermite must not overshoot below 0 or above 1.
	for x := 0.0; x <= 3.0; x += 0.1 {
		v, err := g.Interpolate([]float64{x}, nil)
		rvbtest.AssertNoError(t, err)
		if v < -1e-6 || v > 1+1e-6 {
			t.Errorf("pchip overshoot at x=%v: v=%v", x, v)
		}
	}
}
