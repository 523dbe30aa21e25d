package ocean

import (
	"math"
	"testing"

	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/rvbtest"
)

func TestMackenzieSpeedLiteralPoints(t *testing.T) {
	cases := []struct {
		depth, salinity, temperature, want float64
	}{
		{0, 34.6954, 25.8543, 1535.978},
		{1000, 34.5221, 4.3149, 1483.646},
		{5000, 34.6968, 1.4465, 1540.647},
	}
	for _, c := range cases {
		got := MackenzieSpeed(c.depth, c.salinity, c.temperature)
		tol := math.Abs(c.want) * 1e-3 / 100
		rvbtest.AssertNear(t, got, c.want, tol, "mackenzie speed")
	}
}

func TestChapmanHarrisLiteral(t *testing.T) {
	speedKnots := 5.0 * mpsToKnots
	beta := 158.0 * math.Pow(speedKnots*math.Cbrt(1000), -0.58)
	want := 2.6 - 42.4*math.Log10(beta) + 3.3*beta*math.Log10(10.0/30+1e-6)
	got := ChapmanHarrisDB(5.0, 1000, 10.0)
	rvbtest.AssertNear(t, got, want, 1e-6, "chapman-harris dB")
}

func TestFlatSurfacePressureRelease(t *testing.T) {
	s := NewFlatSurface(6378137)
	rho, n := s.Height(geo.Position{})
	rvbtest.AssertNear(t, rho, 6378137, 1e-9, "flat surface radius")
	rvbtest.AssertUnitMagnitude(t, n.Rho, n.Theta, n.Phi)
	_, phase := s.ReflectLoss(geo.Position{}, []float64{1000}, 0.1)
	rvbtest.AssertNear(t, phase[0], math.Pi, 1e-12, "pressure release phase")
}

func TestLinearProfileGradientSign(t *testing.T) {
	p := NewLinearProfile(1500, 0.017)
	p.SurfaceRadius = 6378137
	shallow := geo.Position{Rho: p.SurfaceRadius}
	deep := geo.Position{Rho: p.SurfaceRadius - 100}
	cShallow, _ := p.SoundSpeed(shallow)
	cDeep, _ := p.SoundSpeed(deep)
	if !(cDeep > cShallow) {
		t.Errorf("expected positive-gradient profile to increase speed with depth: shallow=%v deep=%v", cShallow, cDeep)
	}
	_, grad := p.SoundSpeed(shallow)
	rvbtest.AssertNear(t, grad.Rho, -0.017, 1e-9, "dc/drho sign")
}

func TestIsovelocityProfileConstant(t *testing.T) {
	p := NewIsovelocityProfile(1500)
	c1, g1 := p.SoundSpeed(geo.Position{Rho: 6378137})
	c2, _ := p.SoundSpeed(geo.Position{Rho: 6378137 - 2000})
	rvbtest.AssertNear(t, c1, 1500, 1e-12, "iso speed")
	rvbtest.AssertNear(t, c2, 1500, 1e-12, "iso speed at depth")
	rvbtest.AssertNear(t, g1.Rho, 0, 1e-12, "iso gradient")
}

func TestMackenzieSoundSpeedFiniteDifferenceGradient(t *testing.T) {
	surfaceRadius := 6378137.0
	m := &MackenzieSoundSpeed{
		SurfaceRadius: surfaceRadius,
		Temperature:   func(pos geo.Position) float64 { return 10 },
		Salinity:      func(pos geo.Position) float64 { return 35 },
	}
	c, grad := m.SoundSpeed(geo.Position{Rho: surfaceRadius - 1000})
	want := MackenzieSpeed(1000, 35, 10)
	rvbtest.AssertNear(t, c, want, 1e-6, "mackenzie profile speed")
	// Sound speed increases with depth at constant T/S (1.63e-2 *
	// depth term dominates), so dc/drho should be negative.
	if grad.Rho >= 0 {
		t.Errorf("expected negative dc/drho at depth, got %v", grad.Rho)
	}
}

func TestChapmanHarrisSurfaceScattering(t *testing.T) {
	s := NewChapmanHarrisSurface(6378137, 5.0)
	freqs := []float64{1000}
	deg10 := 10.0 * math.Pi / 180
	amp := s.Scattering(geo.Position{}, freqs, deg10, deg10, 0, 0)
	want := ChapmanHarrisAmplitude(5.0, 1000, 10.0)
	rvbtest.AssertNear(t, amp[0], want, 1e-9, "chapman-harris amplitude")
}

func TestFlatVolumeScattering(t *testing.T) {
	v := NewFlatVolume(6378137-500, 50)
	v.Strength = []float64{0.01, 0.02}
	rho, thick := v.Depth(geo.Position{})
	rvbtest.AssertNear(t, rho, 6378137-500, 1e-9, "volume radius")
	rvbtest.AssertNear(t, thick, 50, 1e-9, "volume thickness")
	amp := v.Scattering(geo.Position{}, []float64{1000, 2000, 3000}, 0, 0, 0, 0)
	rvbtest.AssertNear(t, amp[0], 0.01, 1e-12, "volume strength 0")
	rvbtest.AssertNear(t, amp[1], 0.02, 1e-12, "volume strength 1")
	rvbtest.AssertNear(t, amp[2], 0, 1e-12, "volume strength default")
}
