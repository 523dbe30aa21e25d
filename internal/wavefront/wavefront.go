// Package wavefront implements the wavefront snapshot (spec §4.4,
// component C5): a single (DE×AZ) rank-2 cross-section of a
// propagating ray fan — positions, normalised directions, their
// gradients, per-interface bounce counters, an on_edge mask, and the
// closest-point-of-approach table used to emit eigenrays.
package wavefront

import (
	"math"

	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/ocean"
)

// Counters tallies the interfaces a cell's ray has interacted with. Two
// cells have the same "family signature" (spec §4.4 find_edges) iff
// their Counters are equal.
type Counters struct {
	Surface  int
	Bottom   int
	Caustic  int
	UpperVol int
	LowerVol int
}

// Snapshot is a single (DE×AZ) wavefront cross-section. Cells are
// stored row-major: index(d,a) = d*SizeAZ + a.
type Snapshot struct {
	SizeDE, SizeAZ int
	Time           float64

	Position      []geo.Position
	Direction     []geo.Direction
	PositionGrad  []geo.Direction // d(Position)/dt, physical units
	DirectionGrad []geo.Direction // d(Direction)/dt

	// Distance is the cumulative chord-length travelled per cell
	// (spec §4.5 step 2).
	Distance []float64

	Counters []Counters
	OnEdge   []bool
	// Valid is false for a cell whose position has gone non-finite;
	// it is then frozen and skipped for all further emissions (spec
	// §4.5 failure semantics).
	Valid []bool
}

// NewSnapshot allocates a zeroed snapshot of the given DE×AZ shape.
func NewSnapshot(sizeDE, sizeAZ int) *Snapshot {
	n := sizeDE * sizeAZ
	s := &Snapshot{
		SizeDE:        sizeDE,
		SizeAZ:        sizeAZ,
		Position:      make([]geo.Position, n),
		Direction:     make([]geo.Direction, n),
		PositionGrad:  make([]geo.Direction, n),
		DirectionGrad: make([]geo.Direction, n),
		Distance:      make([]float64, n),
		Counters:      make([]Counters, n),
		OnEdge:        make([]bool, n),
		Valid:         make([]bool, n),
	}
	for i := range s.Valid {
		s.Valid[i] = true
	}
	return s
}

// Index returns the flat offset of cell (d,a).
func (s *Snapshot) Index(d, a int) int { return d*s.SizeAZ + a }

// InBounds reports whether (d,a) is a real cell.
func (s *Snapshot) InBounds(d, a int) bool {
	return d >= 0 && d < s.SizeDE && a >= 0 && a < s.SizeAZ
}

// Clone returns a deep copy of s, sharing no slices with it.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot(s.SizeDE, s.SizeAZ)
	c.Time = s.Time
	copy(c.Position, s.Position)
	copy(c.Direction, s.Direction)
	copy(c.PositionGrad, s.PositionGrad)
	copy(c.DirectionGrad, s.DirectionGrad)
	copy(c.Distance, s.Distance)
	copy(c.Counters, s.Counters)
	copy(c.OnEdge, s.OnEdge)
	copy(c.Valid, s.Valid)
	return c
}

// UpdateDerivs recomputes, for every valid cell, the position gradient
// (= c * normalised direction) and the direction gradient (= (1/c)*∇c
// projected onto the plane perpendicular to the ray, i.e. the
// refraction term with its along-ray component removed) per spec
// §4.4.
func (s *Snapshot) UpdateDerivs(env *ocean.Environment) {
	for i := range s.Position {
		if !s.Valid[i] {
			continue
		}
		posGrad, dirGrad, ok := CellDerivs(s.Position[i], s.Direction[i], env)
		if !ok {
			s.Valid[i] = false
			continue
		}
		s.PositionGrad[i] = posGrad
		s.DirectionGrad[i] = dirGrad
	}
}

// CellDerivs evaluates the ray ODE's right-hand side at a single
// (pos,dir) state: d(Position)/dt = c*n, d(Direction)/dt = the
// refraction term ((1/c)*gradC with its along-ray component removed).
// Shared by Snapshot.UpdateDerivs and the wave queue's RK3/AB3
// integrators (spec §4.4, §4.5) so both evaluate the identical
// per-cell physics.
func CellDerivs(pos geo.Position, dir geo.Direction, env *ocean.Environment) (posGrad, dirGrad geo.Direction, ok bool) {
	c, gradC := env.Profile.SoundSpeed(pos)
	if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
		return geo.Direction{}, geo.Direction{}, false
	}
	n := geo.Normalize(dir)
	posGrad = geo.Scale(n, c)
	dot := geo.Dot(gradC, n)
	perp := geo.Sub(gradC, geo.Scale(n, dot))
	dirGrad = geo.Scale(perp, 1/c)
	return posGrad, dirGrad, true
}

// FindEdges marks each cell on_edge when its Counters differ from any
// of its four grid neighbours (spec §4.4 find_edges). Cells on the
// grid boundary are compared only against the neighbours they have.
func (s *Snapshot) FindEdges() {
	for d := 0; d < s.SizeDE; d++ {
		for a := 0; a < s.SizeAZ; a++ {
			i := s.Index(d, a)
			own := s.Counters[i]
			edge := false
			for _, nb := range [][2]int{{d - 1, a}, {d + 1, a}, {d, a - 1}, {d, a + 1}} {
				if !s.InBounds(nb[0], nb[1]) {
					continue
				}
				if s.Counters[s.Index(nb[0], nb[1])] != own {
					edge = true
					break
				}
			}
			s.OnEdge[i] = edge
		}
	}
}

// CPA is one entry of the closest-point-of-approach table (spec §4.4
// compute_target_CPAs): quadratic-minimum fractional offsets from the
// cell centre in time, DE, and AZ, and a coarse intensity estimate
// (1/distance² at the fitted point — refined later by the spreading
// model, C7). Valid only when all three offsets land in [-0.5, 0.5).
type CPA struct {
	DT, DDE, DAZ float64
	Intensity    float64
	Valid        bool
}

// ComputeTargetCPAs estimates, for every target and every cell, the
// offset at which the squared distance to the target is minimised,
// via three independent 1-D quadratic (parabolic) fits along time, DE
// and AZ — using PositionGrad as the time derivative and central
// finite differences across neighbouring cells as the DE/AZ spatial
// derivatives. Returns a [target][cell] table.
func (s *Snapshot) ComputeTargetCPAs(targets []geo.Position) [][]CPA {
	table := make([][]CPA, len(targets))
	for ti, target := range targets {
		row := make([]CPA, len(s.Position))
		for d := 0; d < s.SizeDE; d++ {
			for a := 0; a < s.SizeAZ; a++ {
				i := s.Index(d, a)
				if !s.Valid[i] {
					continue
				}
				row[i] = s.cellCPA(d, a, target)
			}
		}
		table[ti] = row
	}
	return table
}

func (s *Snapshot) cellCPA(d, a int, target geo.Position) CPA {
	i := s.Index(d, a)
	p0 := s.Position[i]
	toTarget := geo.LocalDisplacement(p0, target)

	vT := s.PositionGrad[i]
	vDE, okDE := s.centralDiff(d, a, 1, 0)
	vAZ, okAZ := s.centralDiff(d, a, 0, 1)

	dt, okT := parabolicMinimum(toTarget, vT)
	dde := 0.0
	if okDE {
		dde, _ = parabolicMinimum(toTarget, vDE)
	}
	daz := 0.0
	if okAZ {
		daz, _ = parabolicMinimum(toTarget, vAZ)
	}

	valid := okT && inHalfOpenUnit(dt) && inHalfOpenUnit(dde) && inHalfOpenUnit(daz)

	residual := geo.Sub(toTarget, geo.Add(geo.Scale(vT, dt), geo.Add(geo.Scale(vDE, dde), geo.Scale(vAZ, daz))))
	d2 := geo.Dot(residual, residual)
	intensity := 0.0
	if d2 > 0 {
		intensity = 1 / d2
	}

	return CPA{DT: dt, DDE: dde, DAZ: daz, Intensity: intensity, Valid: valid}
}

// centralDiff returns the central-difference derivative of Position
// along the (dDE,dAZ) step direction (one of which must be 1, the
// other 0), falling back to a one-sided difference at a grid edge. ok
// is false only when the cell has no usable neighbour at all (a 1x1
// axis).
func (s *Snapshot) centralDiff(d, a, stepDE, stepAZ int) (geo.Direction, bool) {
	lo := [2]int{d - stepDE, a - stepAZ}
	hi := [2]int{d + stepDE, a + stepAZ}
	loOK := s.InBounds(lo[0], lo[1])
	hiOK := s.InBounds(hi[0], hi[1])
	switch {
	case loOK && hiOK:
		disp := geo.LocalDisplacement(s.Position[s.Index(lo[0], lo[1])], s.Position[s.Index(hi[0], hi[1])])
		return geo.Scale(disp, 0.5), true
	case hiOK:
		disp := geo.LocalDisplacement(s.Position[s.Index(d, a)], s.Position[s.Index(hi[0], hi[1])])
		return disp, true
	case loOK:
		disp := geo.LocalDisplacement(s.Position[s.Index(lo[0], lo[1])], s.Position[s.Index(d, a)])
		return disp, true
	default:
		return geo.Direction{}, false
	}
}

// parabolicMinimum finds the vertex of the 1-D parabola
// f(x) = |toTarget - x*v|² = |toTarget|² - 2x(toTarget·v) + x²|v|²,
// i.e. x* = (toTarget·v)/|v|². ok is false when v is (numerically)
// zero, in which case the axis contributes no offset.
func parabolicMinimum(toTarget, v geo.Direction) (float64, bool) {
	vv := geo.Dot(v, v)
	if vv < 1e-18 {
		return 0, false
	}
	return geo.Dot(toTarget, v) / vv, true
}

func inHalfOpenUnit(x float64) bool {
	return x >= -0.5 && x < 0.5
}
