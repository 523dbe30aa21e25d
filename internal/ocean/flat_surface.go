package ocean

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/geo"
)

// FlatSurface is a constant-radius pressure-release boundary: zero
// grazing-dependent loss, a perfect-reflector amplitude (0 dB) and the
// pressure-release pi phase inversion, and no scattering of its own
// (compose with ChapmanHarrisSurface for scattering).
//
// Grounded on original_source/ocean/profile_linear.h's "constant"
// profile idiom: a single scalar parameter standing in for a full
// gridded model, used as a propagation-loss test fixture.
type FlatSurface struct {
	// Radius is the boundary's constant radial position (metres
	// from Earth centre).
	Radius float64
}

// NewFlatSurface builds a FlatSurface at the given radius.
func NewFlatSurface(radius float64) *FlatSurface {
	return &FlatSurface{Radius: radius}
}

func (s *FlatSurface) Height(pos geo.Position) (float64, geo.Direction) {
	return s.Radius, geo.Direction{Rho: 1, Theta: 0, Phi: 0}
}

func (s *FlatSurface) ReflectLoss(pos geo.Position, freqs []float64, grazing float64) ([]float64, []float64) {
	ampDB := make([]float64, len(freqs))
	phase := make([]float64, len(freqs))
	for i := range freqs {
		ampDB[i] = 0
		phase[i] = math.Pi
	}
	return ampDB, phase
}

func (s *FlatSurface) Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64 {
	return make([]float64, len(freqs))
}

// FlatBottom is the rigid-boundary counterpart of FlatSurface: full
// reflection with no phase inversion, and no scattering of its own.
type FlatBottom struct {
	Radius float64
}

func NewFlatBottom(radius float64) *FlatBottom {
	return &FlatBottom{Radius: radius}
}

func (b *FlatBottom) Height(pos geo.Position) (float64, geo.Direction) {
	return b.Radius, geo.Direction{Rho: -1, Theta: 0, Phi: 0}
}

func (b *FlatBottom) ReflectLoss(pos geo.Position, freqs []float64, grazing float64) ([]float64, []float64) {
	ampDB := make([]float64, len(freqs))
	phase := make([]float64, len(freqs))
	return ampDB, phase
}

func (b *FlatBottom) Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64 {
	return make([]float64, len(freqs))
}
