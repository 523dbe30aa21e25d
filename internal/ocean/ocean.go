// Package ocean implements the environment interface (spec §4.3,
// component C4): unified read-only access to surface/bottom height and
// normal, profile sound speed and gradient, volume layer depth, and
// scattering/reflection loss. All methods must be safe for concurrent
// callers; the shared ocean handle is immutable for its lifetime and
// mutation happens only by swapping the whole handle.
//
// The gridded bathymetry/SSP loaders spec.md mentions stay as plain
// interfaces here (Boundary/Profile/Volume already accept anything,
// gridded or analytic) — building one from a netCDF file is left to an
// external collaborator. This package supplies the minimal analytic
// fixtures needed to drive end-to-end propagation scenarios: a flat
// surface, constant and linear sound-speed profiles, the Mackenzie
// (1981) nine-term formula, and Chapman-Harris (1962) surface
// scattering.
package ocean

import (
	"github.com/banshee-data/deepreverb/internal/geo"
)

// Boundary is the shared contract for surface and bottom interfaces
// (spec §4.3 calls these "the same triple").
type Boundary interface {
	// Height returns the boundary's radial position and outward
	// normal at pos.
	Height(pos geo.Position) (rho float64, normal geo.Direction)
	// ReflectLoss returns per-frequency amplitude loss (dB) and
	// phase (radians) for a ray striking the boundary at the given
	// grazing angle (radians, up-positive).
	ReflectLoss(pos geo.Position, freqs []float64, grazing float64) (ampDB, phase []float64)
	// Scattering returns per-frequency scattering strength (linear
	// amplitude) for a ray incident at (deIn,azIn) and scattered
	// toward (deOut,azOut), angles in radians.
	Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64
}

// Surface and Bottom are the same contract under spec.md's reading;
// distinct names keep call sites self-documenting.
type Surface = Boundary
type Bottom = Boundary

// Profile is the sound-speed and attenuation interface.
type Profile interface {
	// SoundSpeed returns the local speed of sound (m/s) and its
	// gradient at pos.
	SoundSpeed(pos geo.Position) (c float64, gradient geo.Direction)
	// Attenuation returns per-frequency absorption loss (dB) over
	// distance metres of travel through the water at pos.
	Attenuation(pos geo.Position, freqs []float64, distance float64) []float64
}

// Volume is an optional reverberation layer, indexed 0..K-1 by the
// caller.
type Volume interface {
	// Depth returns the layer's radial position and thickness at pos.
	Depth(pos geo.Position) (rho, thickness float64)
	Scattering(pos geo.Position, freqs []float64, deIn, deOut, azIn, azOut float64) []float64
}

// Environment bundles the sub-interfaces a wave queue needs. It is
// process-wide, shared via a reference-counted read-only handle, and
// swapped atomically on update (spec §3 Ownership).
type Environment struct {
	Surface Surface
	Bottom  Bottom
	Profile Profile
	Volumes []Volume
}
