// Package eigenray implements the eigenray collection (spec §4.8,
// component C8): acoustic paths grouped per (source,target), with
// coherent and incoherent summation to broadband transmission loss.
package eigenray

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/deepreverb/internal/wavefront"
)

// Eigenray is one acoustic path between a source and a target.
// Immutable once created (spec §3 lifetime: "created on CPA detection;
// immutable thereafter; shared by reference").
type Eigenray struct {
	TravelTime float64
	// Intensity and Phase are linear-scale, per frequency (matching
	// the Frequencies axis of the owning Collection).
	Intensity            []float64
	Phase                []float64
	LaunchDE, LaunchAZ   float64
	ArrivalDE, ArrivalAZ float64
	Counters             wavefront.Counters
}

// Collection stores eigenrays indexed by target (row,col) of the
// target matrix supplied at construction.
type Collection struct {
	Frequencies []float64
	rows, cols  int
	rays        [][]Eigenray
}

// NewCollection builds an empty collection sized for an rows*cols
// target matrix.
func NewCollection(rows, cols int, frequencies []float64) *Collection {
	return &Collection{
		Frequencies: frequencies,
		rows:        rows,
		cols:        cols,
		rays:        make([][]Eigenray, rows*cols),
	}
}

func (c *Collection) index(row, col int) int { return row*c.cols + col }

// Add appends ray to the (row,col) target's eigenray list.
func (c *Collection) Add(row, col int, ray Eigenray) {
	i := c.index(row, col)
	c.rays[i] = append(c.rays[i], ray)
}

// Rays returns the eigenrays accumulated for target (row,col).
func (c *Collection) Rays(row, col int) []Eigenray {
	return c.rays[c.index(row, col)]
}

// Dims returns the target matrix shape.
func (c *Collection) Dims() (rows, cols int) { return c.rows, c.cols }

// TargetSum holds both summation results for one target (spec §4.8:
// "compute both a coherent sum ... and an incoherent sum").
type TargetSum struct {
	Row, Col            int
	CoherentIntensity   []float64 // per frequency, linear
	IncoherentIntensity []float64 // per frequency, linear
}

// SumEigenrays computes, for every target and every frequency, the
// coherent sum |Σ √Iᵢ·exp(i·(2π·f·τᵢ+φᵢ))|² and the incoherent sum
// ΣIᵢ. The coherent flag selects nothing about which sums are
// computed (both always are, per spec §4.8) — it is retained for
// call-site clarity about which value the caller intends to act on.
func (c *Collection) SumEigenrays(coherent bool) []TargetSum {
	out := make([]TargetSum, 0, len(c.rays))
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			out = append(out, c.sumTarget(row, col))
		}
	}
	return out
}

func (c *Collection) sumTarget(row, col int) TargetSum {
	rays := c.Rays(row, col)
	nf := len(c.Frequencies)
	sum := TargetSum{Row: row, Col: col, CoherentIntensity: make([]float64, nf), IncoherentIntensity: make([]float64, nf)}
	intensities := make([]float64, 0, len(rays))
	for fi, freq := range c.Frequencies {
		var coherentSum complex128
		intensities = intensities[:0]
		for _, ray := range rays {
			if fi >= len(ray.Intensity) || fi >= len(ray.Phase) {
				continue
			}
			I := ray.Intensity[fi]
			if I < 0 {
				I = 0
			}
			amp := math.Sqrt(I)
			angle := 2*math.Pi*freq*ray.TravelTime + ray.Phase[fi]
			coherentSum += complex(amp, 0) * cmplx.Exp(complex(0, angle))
			intensities = append(intensities, I)
		}
		sum.CoherentIntensity[fi] = cmplx.Abs(coherentSum) * cmplx.Abs(coherentSum)
		sum.IncoherentIntensity[fi] = floats.Sum(intensities)
	}
	return sum
}

// ArrivalSpread reports the intensity-weighted mean and standard
// deviation of arrival travel time across the rays at target (row,col)
// and frequency index fi — a sanity check that the multipath spread
// at a target stays within a plausible Fresnel-zone-scale window
// (spec §4.8/§8 diagnostics). Returns (0, 0) if no ray at fi carries
// positive intensity.
func (c *Collection) ArrivalSpread(row, col, fi int) (meanTravelTime, stdDevTravelTime float64) {
	rays := c.Rays(row, col)
	travelTimes := make([]float64, 0, len(rays))
	weights := make([]float64, 0, len(rays))
	for _, ray := range rays {
		if fi >= len(ray.Intensity) {
			continue
		}
		I := ray.Intensity[fi]
		if I <= 0 {
			continue
		}
		travelTimes = append(travelTimes, ray.TravelTime)
		weights = append(weights, I)
	}
	if len(travelTimes) == 0 {
		return 0, 0
	}
	mean, variance := stat.MeanVariance(travelTimes, weights)
	return mean, math.Sqrt(variance)
}

// TransmissionLossDB converts a linear intensity to decibels,
// 10·log10(intensity), returning -Inf for a non-positive intensity.
// The result is an intensity level (higher intensity gives a higher
// value); the one-way transmission loss is its negative.
func TransmissionLossDB(intensity float64) float64 {
	if intensity <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(intensity)
}
