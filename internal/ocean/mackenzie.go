package ocean

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/geo"
)

// MackenzieSpeed implements K.V. Mackenzie's nine-term equation for the
// speed of sound in sea water (J. Acoust. Soc. Am. 70:807, 1981), as
// transcribed in original_source/ocean/data_grid_mackenzie.h:
//
//	c(D,S,T) = 1448.96 + 4.591*T - 5.304e-2*T^2 + 2.374e-4*T^3
//	         + 1.340*(S-35) + 1.630e-2*D + 1.675e-7*D^2
//	         - 1.025e-2*T*(S-35) - 7.139e-13*T*D^3
//
// D is depth in metres, S is salinity in parts-per-thousand, T is
// temperature in degrees Celsius.
func MackenzieSpeed(depth, salinity, temperature float64) float64 {
	d, s, t := depth, salinity, temperature
	sMinus35 := s - 35
	return 1448.96 +
		4.591*t -
		5.304e-2*t*t +
		2.374e-4*t*t*t +
		1.340*sMinus35 +
		1.630e-2*d +
		1.675e-7*d*d -
		1.025e-2*t*sMinus35 -
		7.139e-13*t*d*d*d
}

// MackenzieSoundSpeed is a Profile that derives sound speed from
// supplied temperature and salinity fields via MackenzieSpeed, the way
// data_grid_mackenzie builds a sound-speed grid from T/S grids. The
// gradient is estimated by central finite difference in each of the
// three local directions (radial, north, east), since Temperature and
// Salinity are arbitrary closures with no closed-form derivative.
type MackenzieSoundSpeed struct {
	SurfaceRadius float64
	Temperature   func(pos geo.Position) float64
	Salinity      func(pos geo.Position) float64
	Atten         func(freqHz, distanceM float64) float64
	// Step is the finite-difference step in metres; defaults to 1.0
	// when zero.
	Step float64
}

func (m *MackenzieSoundSpeed) step() float64 {
	if m.Step > 0 {
		return m.Step
	}
	return 1.0
}

func (m *MackenzieSoundSpeed) speedAt(pos geo.Position) float64 {
	depth := m.SurfaceRadius - pos.Rho
	return MackenzieSpeed(depth, m.Salinity(pos), m.Temperature(pos))
}

func (m *MackenzieSoundSpeed) SoundSpeed(pos geo.Position) (float64, geo.Direction) {
	c := m.speedAt(pos)
	h := m.step()

	up := pos
	up.Rho += h
	down := pos
	down.Rho -= h
	dRho := (m.speedAt(up) - m.speedAt(down)) / (2 * h)

	north := geo.Destination(pos, 0, h)
	south := geo.Destination(pos, math.Pi, h)
	dNorth := (m.speedAt(north) - m.speedAt(south)) / (2 * h)

	east := geo.Destination(pos, math.Pi/2, h)
	west := geo.Destination(pos, 3*math.Pi/2, h)
	dEast := (m.speedAt(east) - m.speedAt(west)) / (2 * h)

	// Direction's Theta component is south-positive, so the northward
	// derivative enters with its sign flipped.
	return c, geo.Direction{Rho: dRho, Theta: -dNorth, Phi: dEast}
}

func (m *MackenzieSoundSpeed) Attenuation(pos geo.Position, freqs []float64, distance float64) []float64 {
	out := make([]float64, len(freqs))
	if m.Atten == nil {
		return out
	}
	for i, f := range freqs {
		out[i] = m.Atten(f, distance)
	}
	return out
}
