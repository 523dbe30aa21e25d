package eigenray

import (
	"math"
	"testing"

	"github.com/banshee-data/deepreverb/internal/rvbtest"
)

func TestIncoherentSumIsPlainSum(t *testing.T) {
	c := NewCollection(1, 1, []float64{1000})
	c.Add(0, 0, Eigenray{TravelTime: 1.0, Intensity: []float64{0.5}, Phase: []float64{0}})
	c.Add(0, 0, Eigenray{TravelTime: 1.1, Intensity: []float64{0.25}, Phase: []float64{1}})

	sums := c.SumEigenrays(true)
	rvbtest.AssertNear(t, sums[0].IncoherentIntensity[0], 0.75, 1e-12, "incoherent sum")
}

func TestCoherentSumInPhaseEqualsSquaredSumOfAmplitudes(t *testing.T) {
	c := NewCollection(1, 1, []float64{1000})
	// Travel times and phases chosen so both rays' angle terms are
	// identical (2*pi*f*tau + phase equal mod 2*pi), i.e. perfectly
	// in-phase constructive interference.
	c.Add(0, 0, Eigenray{TravelTime: 0, Intensity: []float64{1.0}, Phase: []float64{0}})
	c.Add(0, 0, Eigenray{TravelTime: 0, Intensity: []float64{1.0}, Phase: []float64{0}})

	sums := c.SumEigenrays(true)
	want := math.Pow(math.Sqrt(1.0)+math.Sqrt(1.0), 2)
	rvbtest.AssertNear(t, sums[0].CoherentIntensity[0], want, 1e-9, "in-phase coherent sum")
}

func TestCoherentSumOutOfPhaseCancels(t *testing.T) {
	c := NewCollection(1, 1, []float64{1000})
	c.Add(0, 0, Eigenray{TravelTime: 0, Intensity: []float64{1.0}, Phase: []float64{0}})
	c.Add(0, 0, Eigenray{TravelTime: 0, Intensity: []float64{1.0}, Phase: []float64{math.Pi}})

	sums := c.SumEigenrays(true)
	rvbtest.AssertNear(t, sums[0].CoherentIntensity[0], 0, 1e-9, "out-of-phase cancellation")
}

func TestEmptyTargetSumsToZero(t *testing.T) {
	c := NewCollection(2, 2, []float64{1000, 2000})
	sums := c.SumEigenrays(true)
	if len(sums) != 4 {
		t.Fatalf("expected 4 target sums, got %d", len(sums))
	}
	for _, s := range sums {
		for _, v := range s.CoherentIntensity {
			rvbtest.AssertNear(t, v, 0, 1e-12, "empty target coherent")
		}
		for _, v := range s.IncoherentIntensity {
			rvbtest.AssertNear(t, v, 0, 1e-12, "empty target incoherent")
		}
	}
}

func TestArrivalSpreadWeightsByIntensity(t *testing.T) {
	c := NewCollection(1, 1, []float64{1000})
	// A dominant early, high-intensity arrival pulls the weighted mean
	// toward its travel time, away from the plain (unweighted) mean.
	c.Add(0, 0, Eigenray{TravelTime: 1.0, Intensity: []float64{1.0}, Phase: []float64{0}})
	c.Add(0, 0, Eigenray{TravelTime: 2.0, Intensity: []float64{0.01}, Phase: []float64{0}})

	mean, stdDev := c.ArrivalSpread(0, 0, 0)
	if !(mean < 1.5) {
		t.Errorf("expected intensity-weighted mean pulled toward dominant arrival, got %v", mean)
	}
	if stdDev <= 0 {
		t.Errorf("expected positive spread across two distinct travel times, got %v", stdDev)
	}
}

func TestArrivalSpreadEmptyTargetIsZero(t *testing.T) {
	c := NewCollection(1, 1, []float64{1000})
	mean, stdDev := c.ArrivalSpread(0, 0, 0)
	rvbtest.AssertNear(t, mean, 0, 1e-12, "empty mean")
	rvbtest.AssertNear(t, stdDev, 0, 1e-12, "empty stddev")
}

func TestTransmissionLossDBMonotonic(t *testing.T) {
	lo := TransmissionLossDB(0.001)
	hi := TransmissionLossDB(0.1)
	if !(hi > lo) {
		t.Errorf("expected higher intensity to have higher dB value: lo=%v hi=%v", lo, hi)
	}
}
