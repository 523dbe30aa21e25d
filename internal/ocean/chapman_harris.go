package ocean

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/geo"
)

// mpsToKnots converts wind speed from metres/second to knots, the unit
// original_source/ocean/scattering_chapman.h's beta term is defined in.
const mpsToKnots = 1.94384449

// ChapmanHarrisDB computes 10*log10(S), the Chapman-Harris (1962)
// empirical surface backscattering strength in dB, following
// original_source/ocean/scattering_chapman.h:
//
//	speed = windSpeedMps * 1.94384449            // m/s -> knots
//	beta  = 158 * (speed * freqHz^(1/3))^(-0.58)
//	10*log10(S) = 2.6 - 42.4*log10(beta) + 3.3*beta*log10(grazingDeg/30 + 1e-6)
//
// grazingDeg is the average of the incident and scattered grazing
// angles, in degrees; the 1e-6 epsilon guards log10 against a zero
// grazing angle.
func ChapmanHarrisDB(windSpeedMps, freqHz, grazingDeg float64) float64 {
	speed := windSpeedMps * mpsToKnots
	beta := 158.0 * math.Pow(speed*math.Cbrt(freqHz), -0.58)
	return 2.6 - 42.4*math.Log10(beta) + 3.3*beta*math.Log10(grazingDeg/30+1e-6)
}

// ChapmanHarrisAmplitude returns the linear-scale scattering amplitude
// 10^(ChapmanHarrisDB/10).
func ChapmanHarrisAmplitude(windSpeedMps, freqHz, grazingDeg float64) float64 {
	return math.Pow(10, ChapmanHarrisDB(windSpeedMps, freqHz, grazingDeg)/10)
}

// ChapmanHarrisSurface is a Boundary whose height/reflect-loss delegate
// to an embedded FlatSurface and whose Scattering uses the
// Chapman-Harris wind-driven roughness model.
type ChapmanHarrisSurface struct {
	*FlatSurface
	WindSpeedMps float64
}

// NewChapmanHarrisSurface builds a flat boundary at radius whose
// scattering strength follows Chapman-Harris for the given wind speed
// (m/s).
func NewChapmanHarrisSurface(radius, windSpeedMps float64) *ChapmanHarrisSurface {
	return &ChapmanHarrisSurface{FlatSurface: NewFlatSurface(radius), WindSpeedMps: windSpeedMps}
}

func (s *ChapmanHarrisSurface) Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64 {
	grazingDeg := 0.5 * (deIn + deOut) * 180 / math.Pi
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = ChapmanHarrisAmplitude(s.WindSpeedMps, f, grazingDeg)
	}
	return out
}
