// Package envelope implements the envelope collection and generator
// (spec §4.12, component C12): per (source-beam, receiver-beam) pair,
// a (freq × time) reverberation intensity matrix built by accumulating
// an area-1 Gaussian per biverb, scaled by beam-pattern gain and
// biverb power.
//
// This follows spec §9's "current formulation" open-question
// resolution explicitly: area-1 Gaussian in time, full power scaling
// from the biverb (not the legacy normalisation).
package envelope

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/biverb"
)

// Collection holds the (srcBeam × rcvBeam) intensity matrices.
type Collection struct {
	Frequencies   []float64
	TimeAxis      []float64
	SourceBeams   int
	ReceiverBeams int
	// Intensity[srcBeam][rcvBeam][freqIdx][timeIdx]
	Intensity [][][][]float64
}

// NewCollection allocates a zeroed collection over the given shape.
func NewCollection(sourceBeams, receiverBeams int, frequencies, timeAxis []float64) *Collection {
	c := &Collection{
		Frequencies:   frequencies,
		TimeAxis:      timeAxis,
		SourceBeams:   sourceBeams,
		ReceiverBeams: receiverBeams,
	}
	c.Intensity = make([][][][]float64, sourceBeams)
	for sb := range c.Intensity {
		c.Intensity[sb] = make([][][]float64, receiverBeams)
		for rb := range c.Intensity[sb] {
			c.Intensity[sb][rb] = make([][]float64, len(frequencies))
			for fi := range c.Intensity[sb][rb] {
				c.Intensity[sb][rb][fi] = make([]float64, len(timeAxis))
			}
		}
	}
	return c
}

// BeamGain computes the (linear) beam-pattern gain of beam k at
// frequency index fi for a ray arriving/departing at the given launch
// DE/AZ, rotated into the array's tangent frame (spec §4.12: "rotating
// arrival direction into array coordinates using sensor orientation").
type BeamGain func(beam, freqIdx int, launchDE, launchAZ float64) float64

// Generator accumulates biverbs into a Collection.
type Generator struct {
	Collection       *Collection
	SourceBeamGain   BeamGain
	ReceiverBeamGain BeamGain
	// WindowSigmas bounds the time window evaluated per biverb to
	// [tau-W*T, tau+W*T] for efficiency; spec §4.12 default is 5.
	WindowSigmas float64
}

// NewGenerator builds a Generator with WindowSigmas defaulted to 5.
func NewGenerator(c *Collection, sourceGain, receiverGain BeamGain) *Generator {
	return &Generator{Collection: c, SourceBeamGain: sourceGain, ReceiverBeamGain: receiverGain, WindowSigmas: 5}
}

// Add accumulates bv into every (srcBeam,rcvBeam,freq) cell of the
// collection, evaluated only within the time window around
// tau = bv.TravelTime + bv.Duration.
func (gen *Generator) Add(bv *biverb.Biverb) {
	w := gen.WindowSigmas
	if w <= 0 {
		w = 5
	}
	tau := bv.TravelTime + bv.Duration
	sigma := bv.Duration
	if sigma <= 0 {
		return
	}
	loT, hiT := tau-w*sigma, tau+w*sigma
	gen.accumulate(bv, tau, sigma, loT, hiT)
}

func (gen *Generator) accumulate(bv *biverb.Biverb, tau, sigma, loT, hiT float64) {
	c := gen.Collection
	for sb := 0; sb < c.SourceBeams; sb++ {
		for rb := 0; rb < c.ReceiverBeams; rb++ {
			for fi := range c.Frequencies {
				if fi >= len(bv.Power) {
					continue
				}
				power := bv.Power[fi]
				bs := gen.SourceBeamGain(sb, fi, bv.SourceLaunchDE, bv.SourceLaunchAZ)
				br := gen.ReceiverBeamGain(rb, fi, bv.ReceiverLaunchDE, bv.ReceiverLaunchAZ)
				amp := power * bs * br
				if amp == 0 {
					continue
				}
				row := c.Intensity[sb][rb][fi]
				for ti, tt := range c.TimeAxis {
					if tt < loT || tt > hiT {
						continue
					}
					row[ti] += amp * gaussianArea1(tt, tau, sigma)
				}
			}
		}
	}
}

// gaussianArea1 evaluates a unit-area Gaussian centred at mu with
// standard deviation sigma.
func gaussianArea1(t, mu, sigma float64) float64 {
	z := (t - mu) / sigma
	return math.Exp(-0.5*z*z) / (sigma * math.Sqrt(2*math.Pi))
}

// GaussianPeak returns the analytic peak value (at t=mu) of an area-1
// Gaussian with standard deviation sigma, exported for the spec §8
// "peak equals the analytic peak" property test.
func GaussianPeak(sigma float64) float64 {
	return 1 / (sigma * math.Sqrt(2*math.Pi))
}
