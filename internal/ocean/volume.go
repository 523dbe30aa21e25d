package ocean

import (
	"github.com/banshee-data/deepreverb/internal/geo"
)

// FlatVolume is a constant-depth, constant-thickness reverberation
// layer with no scattering of its own unless Strength is set — the
// volume-layer counterpart of FlatSurface/FlatBottom.
type FlatVolume struct {
	Radius    float64
	Thickness float64
	// Strength, if non-nil, is used directly as the per-frequency
	// scattering amplitude (linear).
	Strength []float64
}

func NewFlatVolume(radius, thickness float64) *FlatVolume {
	return &FlatVolume{Radius: radius, Thickness: thickness}
}

func (v *FlatVolume) Depth(pos geo.Position) (float64, float64) {
	return v.Radius, v.Thickness
}

func (v *FlatVolume) Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64 {
	out := make([]float64, len(freqs))
	for i := range freqs {
		if i < len(v.Strength) {
			out[i] = v.Strength[i]
		}
	}
	return out
}
