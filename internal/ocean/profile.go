package ocean

import (
	"github.com/banshee-data/deepreverb/internal/geo"
)

// LinearProfile is the bi-linear/linear/constant analytic sound-speed
// model of original_source/ocean/profile_linear.h:
//
//	c(D) = c0 + g0*D                   for D < D1
//	c(D) = c0 + g0*D1 + g1*(D-D1)      for D >= D1
//
// where D is depth below SurfaceRadius (metres, positive down). Setting
// D1=0 and g1=g0 reduces it to a single-gradient linear profile;
// g0=g1=0 reduces it to IsovelocityProfile's constant case.
type LinearProfile struct {
	SurfaceRadius float64
	C0            float64
	G0            float64
	D1            float64
	G1            float64
	// Atten is the in-water absorption model; nil means no loss.
	Atten func(freqHz, distanceM float64) float64
}

// NewLinearProfile builds the single-gradient linear case (D1=0, g1=g0).
func NewLinearProfile(c0, g0 float64) *LinearProfile {
	return &LinearProfile{C0: c0, G0: g0, D1: 0, G1: g0}
}

// NewBiLinearProfile builds the full bi-linear case.
func NewBiLinearProfile(c0, g0, d1, g1 float64) *LinearProfile {
	return &LinearProfile{C0: c0, G0: g0, D1: d1, G1: g1}
}

func (p *LinearProfile) depth(pos geo.Position) float64 {
	return p.SurfaceRadius - pos.Rho
}

func (p *LinearProfile) SoundSpeed(pos geo.Position) (float64, geo.Direction) {
	d := p.depth(pos)
	var c, grad float64
	if d < p.D1 {
		c = p.C0 + p.G0*d
		grad = p.G0
	} else {
		c = p.C0 + p.G0*p.D1 + p.G1*(d-p.D1)
		grad = p.G1
	}
	// Depth increases as Rho decreases, so dc/d(Rho) = -grad.
	return c, geo.Direction{Rho: -grad, Theta: 0, Phi: 0}
}

func (p *LinearProfile) Attenuation(pos geo.Position, freqs []float64, distance float64) []float64 {
	out := make([]float64, len(freqs))
	if p.Atten == nil {
		return out
	}
	for i, f := range freqs {
		out[i] = p.Atten(f, distance)
	}
	return out
}

// IsovelocityProfile is a constant sound-speed profile: c(pos) = C,
// zero gradient everywhere. The constant case of
// original_source/ocean/profile_linear.h.
type IsovelocityProfile struct {
	C     float64
	Atten func(freqHz, distanceM float64) float64
}

func NewIsovelocityProfile(c float64) *IsovelocityProfile {
	return &IsovelocityProfile{C: c}
}

func (p *IsovelocityProfile) SoundSpeed(pos geo.Position) (float64, geo.Direction) {
	return p.C, geo.Direction{}
}

func (p *IsovelocityProfile) Attenuation(pos geo.Position, freqs []float64, distance float64) []float64 {
	out := make([]float64, len(freqs))
	if p.Atten == nil {
		return out
	}
	for i, f := range freqs {
		out[i] = p.Atten(f, distance)
	}
	return out
}

// ThorpAttenuation is the classical Thorp (1967) broadband absorption
// formula in dB/km for frequency in kHz, the default attenuation model
// profile_model.h falls back to when none is supplied.
func ThorpAttenuation(freqHz float64) float64 {
	f := freqHz / 1000
	f2 := f * f
	return 0.11*f2/(1+f2) + 44*f2/(4100+f2) + 2.75e-4*f2 + 0.003
}
