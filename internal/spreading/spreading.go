// Package spreading implements the Gaussian-beam spreading model (spec
// §4.7, component C7): two variants sharing the contract "map a target
// CPA to a broadband intensity" — classical ray spreading (conserved
// solid angle over cell area) and hybrid Gaussian spreading (summing
// neighbouring beam contributions within the first Fresnel zone).
package spreading

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/wavefront"
)

// CellArea returns the area (m²) of wavefront cell (d,a) on snapshot s,
// as the sum of the two spherical triangles formed by its four corners
// (spec §4.7). At a grid edge, the cell reuses its interior neighbour's
// quad rather than reading out of bounds.
func CellArea(s *wavefront.Snapshot, d, a int) float64 {
	d1, a1 := d+1, a+1
	if d1 >= s.SizeDE {
		d, d1 = d-1, d
	}
	if a1 >= s.SizeAZ {
		a, a1 = a-1, a
	}
	if d < 0 || a < 0 {
		return 0
	}
	p00 := s.Position[s.Index(d, a)]
	p10 := s.Position[s.Index(d1, a)]
	p11 := s.Position[s.Index(d1, a1)]
	p01 := s.Position[s.Index(d, a1)]
	return geo.SphericalTriangleArea(p00, p10, p11) + geo.SphericalTriangleArea(p00, p11, p01)
}

// neighbourRange returns the great-circle distance (metres) from cell
// (d,a) to its neighbour offset by (stepDE,stepAZ), or 0 if that
// neighbour is out of bounds.
func neighbourRange(s *wavefront.Snapshot, d, a, stepDE, stepAZ int) (float64, bool) {
	nd, na := d+stepDE, a+stepAZ
	if !s.InBounds(nd, na) {
		return 0, false
	}
	return geo.GreatCircleRange(s.Position[s.Index(d, a)], s.Position[s.Index(nd, na)]), true
}

func harmonicMean(x, y float64) float64 {
	if x <= 0 || y <= 0 {
		return math.Max(x, y)
	}
	return 2 * x * y / (x + y)
}

// WidthDE returns the half-width (metres) of cell (d,a) in the DE
// direction: the harmonic mean of the great-circle distances to its
// ±1 DE neighbours, divided by two (spec §4.7).
func WidthDE(s *wavefront.Snapshot, d, a int) float64 {
	return halfWidth(s, d, a, 1, 0)
}

// WidthAZ is WidthDE's AZ-direction counterpart.
func WidthAZ(s *wavefront.Snapshot, d, a int) float64 {
	return halfWidth(s, d, a, 0, 1)
}

func halfWidth(s *wavefront.Snapshot, d, a, stepDE, stepAZ int) float64 {
	lo, okLo := neighbourRange(s, d, a, -stepDE, -stepAZ)
	hi, okHi := neighbourRange(s, d, a, stepDE, stepAZ)
	switch {
	case okLo && okHi:
		return harmonicMean(lo, hi) / 2
	case okHi:
		return hi / 2
	case okLo:
		return lo / 2
	default:
		return 0
	}
}

// Offset is the fractional (DE,AZ) offset of a target's CPA from its
// cell centre, matching wavefront.CPA's DDE/DAZ fields.
type Offset struct {
	DE, AZ float64
}

// ClassicalSpreading implements the classical-ray variant: intensity
// proportional to (initial solid angle * c0) / (current cell area *
// c_target).
type ClassicalSpreading struct {
	// SourceSpeed is c0, the sound speed at the launch point.
	SourceSpeed float64
	// InitialSolidAngle is the solid angle (steradians) subtended by
	// one launch cell: deltaDE * deltaAZ * cos(DE) for a regular
	// angular grid.
	InitialSolidAngle float64
}

// Intensity returns a constant-valued vector (classical spreading has
// no frequency dependence) equal to the conserved-energy estimate at
// cell (deIdx,azIdx) of snapshot curr.
func (c *ClassicalSpreading) Intensity(curr *wavefront.Snapshot, deIdx, azIdx int, targetSpeed float64, freqs []float64) []float64 {
	area := CellArea(curr, deIdx, azIdx)
	val := ClassicalIntensityValue(c.InitialSolidAngle, c.SourceSpeed, area, targetSpeed)
	out := make([]float64, len(freqs))
	for i := range out {
		out[i] = val
	}
	return out
}

// IntensityAtOffset adapts ClassicalSpreading to the Spreader
// interface: the classical variant has no offset dependence, so offset
// is accepted and ignored.
func (c *ClassicalSpreading) IntensityAtOffset(curr *wavefront.Snapshot, deIdx, azIdx int, offset Offset, targetSpeed float64, freqs []float64) []float64 {
	return c.Intensity(curr, deIdx, azIdx, targetSpeed, freqs)
}

// Spreader is the shared contract spec §4.7 describes for both
// spreading variants: "intensity(target_pos, de_idx, az_idx, offset,
// frequencies) -> vector". The wave queue (C6) depends on this
// interface rather than on either concrete type.
type Spreader interface {
	IntensityAtOffset(curr *wavefront.Snapshot, deIdx, azIdx int, offset Offset, targetSpeed float64, freqs []float64) []float64
}

// ClassicalIntensityValue is the pure scalar formula behind
// ClassicalSpreading.Intensity, exposed standalone for the spec §8
// "equals 1/r² within 0.5 dB" property test: for a spherical source in
// a constant-speed ocean, cellArea == solidAngle*r², so this reduces
// exactly to c0/(r²*cTarget), i.e. 1/r² when c0==cTarget.
func ClassicalIntensityValue(solidAngle, c0, cellArea, cTarget float64) float64 {
	if cellArea <= 0 || cTarget <= 0 {
		return 0
	}
	return solidAngle * c0 / (cellArea * cTarget)
}

// HybridGaussianSpreading implements the hybrid Gaussian variant: sums
// beam contributions from a neighbourhood of cells out to the
// first-Fresnel-zone radius (in beam-widths), each weighted by a
// Gaussian in its fractional (DE,AZ) distance from the target offset.
type HybridGaussianSpreading struct {
	Classical *ClassicalSpreading
	// FresnelZoneBeamWidths bounds how many neighbouring cells are
	// summed; the Gaussian itself is never clamped (spec §4.7: "the
	// tail decays naturally; no artificial clamp").
	FresnelZoneBeamWidths float64
}

// Intensity sums Gaussian-weighted neighbour contributions centred at
// cell (deIdx,azIdx), for a target whose CPA fell at offset within
// that cell.
func (g *HybridGaussianSpreading) Intensity(curr *wavefront.Snapshot, deIdx, azIdx int, offset Offset, targetSpeed float64, freqs []float64) []float64 {
	return g.intensity(curr, deIdx, azIdx, offset, targetSpeed, freqs)
}

// IntensityAtOffset satisfies the Spreader interface; identical to
// Intensity (the hybrid variant already takes an offset).
func (g *HybridGaussianSpreading) IntensityAtOffset(curr *wavefront.Snapshot, deIdx, azIdx int, offset Offset, targetSpeed float64, freqs []float64) []float64 {
	return g.intensity(curr, deIdx, azIdx, offset, targetSpeed, freqs)
}

func (g *HybridGaussianSpreading) intensity(curr *wavefront.Snapshot, deIdx, azIdx int, offset Offset, targetSpeed float64, freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	radius := g.FresnelZoneBeamWidths
	if radius <= 0 {
		radius = 1
	}
	window := int(math.Ceil(radius)) + 1

	// Convert the target's fractional (DE,AZ) cell offset into the
	// same physical (metres) units as sigmaDE/sigmaAZ, using the
	// centre cell's own grid spacing as the local scale.
	stepDE := 2 * WidthDE(curr, deIdx, azIdx)
	stepAZ := 2 * WidthAZ(curr, deIdx, azIdx)

	for dd := -window; dd <= window; dd++ {
		d := deIdx + dd
		if d < 0 || d >= curr.SizeDE {
			continue
		}
		for da := -window; da <= window; da++ {
			a := azIdx + da
			if a < 0 || a >= curr.SizeAZ {
				continue
			}
			sigmaDE := WidthDE(curr, d, a)
			sigmaAZ := WidthAZ(curr, d, a)
			if sigmaDE <= 0 || sigmaAZ <= 0 {
				continue
			}
			deltaDE := (float64(dd) - offset.DE) * stepDE
			deltaAZ := (float64(da) - offset.AZ) * stepAZ
			weight := math.Exp(-0.5 * ((deltaDE*deltaDE)/(sigmaDE*sigmaDE) + (deltaAZ*deltaAZ)/(sigmaAZ*sigmaAZ)))
			area := CellArea(curr, d, a)
			power := ClassicalIntensityValue(g.Classical.InitialSolidAngle, g.Classical.SourceSpeed, area, targetSpeed)
			for i := range out {
				out[i] += weight * area * power
			}
		}
	}
	return out
}
