package spreading

import (
	"math"
	"testing"

	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/rvbtest"
	"github.com/banshee-data/deepreverb/internal/wavefront"
)

func gridSnapshot(sizeDE, sizeAZ int) *wavefront.Snapshot {
	s := wavefront.NewSnapshot(sizeDE, sizeAZ)
	origin := geo.FromGeodetic(30, -70, 0)
	for d := 0; d < sizeDE; d++ {
		for a := 0; a < sizeAZ; a++ {
			s.Position[s.Index(d, a)] = geo.Destination(origin, float64(a)*0.01, 1000+float64(d)*50)
		}
	}
	return s
}

func TestCellAreaPositive(t *testing.T) {
	s := gridSnapshot(4, 4)
	for d := 0; d < 3; d++ {
		for a := 0; a < 3; a++ {
			if area := CellArea(s, d, a); area <= 0 {
				t.Errorf("cell (%d,%d): expected positive area, got %v", d, a, area)
			}
		}
	}
}

func TestWidthsPositiveInterior(t *testing.T) {
	s := gridSnapshot(5, 5)
	if w := WidthDE(s, 2, 2); w <= 0 {
		t.Errorf("expected positive interior WidthDE, got %v", w)
	}
	if w := WidthAZ(s, 2, 2); w <= 0 {
		t.Errorf("expected positive interior WidthAZ, got %v", w)
	}
}

func TestHybridGaussianPeaksAtCellCentre(t *testing.T) {
	s := gridSnapshot(7, 7)
	classical := &ClassicalSpreading{SourceSpeed: 1500, InitialSolidAngle: 1e-3}
	g := &HybridGaussianSpreading{Classical: classical, FresnelZoneBeamWidths: 1}
	freqs := []float64{1000}

	centre := g.Intensity(s, 3, 3, Offset{0, 0}, 1500, freqs)[0]
	offCentre := g.Intensity(s, 3, 3, Offset{1.5, 1.5}, 1500, freqs)[0]
	if !(centre > offCentre) {
		t.Errorf("expected centred offset to have higher intensity: centre=%v offCentre=%v", centre, offCentre)
	}
}

// TestClassicalIntensityMatchesInverseSquare reproduces spec §8's
// classical-ray property: for a constant-speed ocean and a spherical
// source, predicted intensity at range r equals 1/r^2 within 0.5 dB
// over r in [100m, 100km]. For a spherical wave, a launch cell of
// solid angle Omega subtends area Omega*r^2 at range r, so the
// classical formula Omega*c0/(area*cTarget) reduces to c0/(r^2*cTarget).
func TestClassicalIntensityMatchesInverseSquare(t *testing.T) {
	const omega = 1e-3 // steradians, arbitrary launch solid angle
	const c0 = 1500.0
	ranges := []float64{100, 1000, 10_000, 100_000}
	for _, r := range ranges {
		area := omega * r * r
		got := ClassicalIntensityValue(omega, c0, area, c0)
		want := 1 / (r * r)
		gotDB := 10 * math.Log10(got)
		wantDB := 10 * math.Log10(want)
		rvbtest.AssertNear(t, gotDB, wantDB, 0.5, "classical spreading within 0.5 dB of 1/r^2")
	}
}

func TestClassicalIntensityZeroAreaIsZero(t *testing.T) {
	got := ClassicalIntensityValue(1e-3, 1500, 0, 1500)
	rvbtest.AssertNear(t, got, 0, 1e-12, "zero area yields zero intensity, not a divide-by-zero panic")
}

func TestHarmonicMeanSymmetric(t *testing.T) {
	rvbtest.AssertNear(t, harmonicMean(4, 6), harmonicMean(6, 4), 1e-12, "harmonic mean symmetric")
	rvbtest.AssertNear(t, harmonicMean(4, 4), 4, 1e-12, "harmonic mean of equal values")
}
