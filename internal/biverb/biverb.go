// Package biverb implements the bistatic eigenverb generator (spec
// §4.11, component C11): overlaps every source eigenverb with every
// receiver eigenverb inside a distance gate, producing bistatic
// Gaussian contributions with intensity, duration, and travel time.
package biverb

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/geo"
)

// ScatteringFunc computes per-frequency scattering amplitude at pos
// for a ray incident at (deIn,azIn) and scattered toward (deOut,azOut)
// — the shape of ocean.Boundary.Scattering, passed in directly so this
// package need not depend on which boundary kind (surface/bottom/
// volume) is in play.
type ScatteringFunc func(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64

// Biverb is the Gaussian overlap of a source and a receiver eigenverb
// (spec §3).
type Biverb struct {
	TravelTime float64
	Duration   float64 // sigma_t
	Power      []float64
	SourceLaunchDE, SourceLaunchAZ     float64
	ReceiverLaunchDE, ReceiverLaunchAZ float64
}

// Params bundles the tunables the generator needs beyond the two
// eigenverb collections themselves.
type Params struct {
	Frequencies          []float64
	PulseLength          float64
	IntensityThreshold   float64 // linear-scale floor; default caller-supplied 10^(-300/10)
	DistanceGateMultiple float64 // default 6 (spec §4.11: "6*max(L_r,W_r)")
}

// Generate overlaps every receiver verb on iface against candidate
// source verbs within a DistanceGateMultiple*max(L,W) halo (found via
// the source collection's spatial index), producing one Biverb per
// surviving overlap.
func Generate(sourceVerbs, receiverVerbs *eigenverb.Collection, iface eigenverb.Interface, scatter ScatteringFunc, p Params) []*Biverb {
	gate := p.DistanceGateMultiple
	if gate <= 0 {
		gate = 6
	}
	var out []*Biverb
	for _, r := range receiverVerbs.List(iface) {
		halo := gate * math.Max(r.Length, r.Width)
		lonMin, latMin, lonMax, latMax := haloBox(r.Position, halo)
		candidates := sourceVerbs.FindEigenverbs(iface, lonMin, latMin, lonMax, latMax)
		for _, s := range candidates {
			bv := overlap(s, r, scatter, p, gate)
			if bv != nil {
				out = append(out, bv)
			}
		}
	}
	return out
}

func haloBox(pos geo.Position, haloM float64) (lonMin, latMin, lonMax, latMax float64) {
	lat, lon, _ := geo.ToGeodetic(pos)
	latRad := lat * math.Pi / 180
	metresPerDegLat := 111_320.0
	metresPerDegLon := math.Max(1, 111_320.0*math.Cos(latRad))
	dLat := haloM / metresPerDegLat
	dLon := haloM / metresPerDegLon
	return lon - dLon, lat - dLat, lon + dLon, lat + dLat
}

func overlap(s, r *eigenverb.Eigenverb, scatter ScatteringFunc, p Params, gate float64) *Biverb {
	rng := geo.GreatCircleRange(r.Position, s.Position)
	bearing := geo.Bearing(r.Position, s.Position)
	rel := bearing - r.Direction
	xs := rng * math.Sin(rel)
	ys := rng * math.Cos(rel)
	if math.Abs(xs) > gate*r.Width || math.Abs(ys) > gate*r.Length {
		return nil
	}

	ls2, ws2 := s.Length*s.Length, s.Width*s.Width
	lr2, wr2 := r.Length*r.Length, r.Width*r.Width
	alpha := s.Direction - r.Direction
	cos2a, sin2a := math.Cos(2*alpha), math.Sin(2*alpha)
	sSum, d := ls2+ws2, ls2-ws2

	// sigma is the combined footprint covariance (source's footprint
	// rotated by alpha, plus the receiver's, both in the receiver's
	// length/width frame); kappa is the quadratic form of the bivariate
	// Gaussian exponent, -0.5 * v^T * sigma^-1 * v for v = (xs, ys).
	sigma := mat.NewDense(2, 2, []float64{
		sSum/2 - d/2*cos2a + wr2, d / 2 * sin2a,
		d / 2 * sin2a, sSum/2 + d/2*cos2a + lr2,
	})
	detSR := mat.Det(sigma)
	if detSR <= 0 {
		return nil
	}
	var sigmaInv mat.Dense
	if err := sigmaInv.Inverse(sigma); err != nil {
		return nil
	}
	v := mat.NewVecDense(2, []float64{xs, ys})
	kappa := -0.5 * mat.Inner(v, &sigmaInv, v)

	grazS, grazR := s.Grazing, r.Grazing
	scatterAmp := scatter(r.Position, p.Frequencies, grazS, grazR, s.LaunchAZ, r.LaunchAZ)

	power := make([]float64, len(p.Frequencies))
	aboveThreshold := false
	expKappaOverSqrtDet := math.Exp(kappa) / math.Sqrt(detSR)
	for fi := range p.Frequencies {
		var ps, pr float64
		if fi < len(s.Power) {
			ps = s.Power[fi]
		}
		if fi < len(r.Power) {
			pr = r.Power[fi]
		}
		sc := 0.0
		if fi < len(scatterAmp) {
			sc = scatterAmp[fi]
		}
		val := 2 * math.Pi * ps * pr * sc * expKappaOverSqrtDet
		power[fi] = val
		if val >= p.IntensityThreshold {
			aboveThreshold = true
		}
	}
	if !aboveThreshold {
		return nil
	}

	// sigma_t^2 estimated from the length-axis overlap variance
	// divided by det_sr, normalised by the product of the four
	// footprint variances (spec §4.11 eqn (41)-equivalent).
	sigmaT2 := (ls2 * ws2 * lr2 * wr2) / detSR
	soundSpeedR := r.SoundSpeed
	if soundSpeedR <= 0 {
		soundSpeedR = 1500
	}
	duration := 0.5 * (math.Cos(r.Grazing) / soundSpeedR) * math.Sqrt(p.PulseLength*p.PulseLength+sigmaT2)

	return &Biverb{
		TravelTime:       s.TravelTime + r.TravelTime,
		Duration:         duration,
		Power:            power,
		SourceLaunchDE:   s.LaunchDE,
		SourceLaunchAZ:   s.LaunchAZ,
		ReceiverLaunchDE: r.LaunchDE,
		ReceiverLaunchAZ: r.LaunchAZ,
	}
}
