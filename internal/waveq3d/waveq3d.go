// Package waveq3d implements the wave queue (spec §4.5, component C6):
// a four-deep ring of wavefront snapshots advanced by an RK3 start-up
// then steady-state Adams-Bashforth-3 integrator, with collision
// detection, reflection (C6.r), edge detection, and eigenray/eigenverb
// emission at each step.
//
// The ring is implemented as a trimmed history slice (append, then
// drop the oldest entry once length exceeds four) rather than manual
// modulo-indexed storage — equivalent semantics to the spec's named
// past/prev/curr/next slots, simpler to get right.
package waveq3d

import (
	"context"
	"math"
	"sync"

	"github.com/banshee-data/deepreverb/internal/eigenray"
	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/ocean"
	"github.com/banshee-data/deepreverb/internal/rvblog"
	"github.com/banshee-data/deepreverb/internal/spreading"
	"github.com/banshee-data/deepreverb/internal/wavefront"
)

// Telemetry reports degraded-but-continuing conditions (spec §7):
// collision refinement giving up on a cell, or a cell going non-finite.
// Separate from the eigenray/eigenverb listeners since these are
// warnings, not emitted artefacts.
type Telemetry interface {
	CollisionRefinementExceeded(deIdx, azIdx int)
	NonFiniteIntegration(deIdx, azIdx int)
}

// LogTelemetry reports via rvblog.Warnf, the default if none is
// supplied.
type LogTelemetry struct{}

func (LogTelemetry) CollisionRefinementExceeded(deIdx, azIdx int) {
	rvblog.Warnf("collision refinement exceeded at cell (%d,%d); marking invalid", deIdx, azIdx)
}

func (LogTelemetry) NonFiniteIntegration(deIdx, azIdx int) {
	rvblog.Warnf("non-finite integration at cell (%d,%d); marking invalid", deIdx, azIdx)
}

// EigenrayListener receives eigenrays as they are emitted (spec §4.5
// step 7).
type EigenrayListener interface {
	OnEigenray(row, col int, ray eigenray.Eigenray)
}

// EigenverbListener receives eigenverbs as they are emitted (spec §4.5
// step 8).
type EigenverbListener interface {
	OnEigenverb(iface eigenverb.Interface, verb *eigenverb.Eigenverb)
}

// Params bundles the wave queue's construction-time configuration.
type Params struct {
	Env          *ocean.Environment
	Frequencies  []float64
	Source       geo.Position
	DEAngles     []float64 // radians, up-positive, launch grid rows
	AZAngles     []float64 // radians, compass bearing, launch grid cols
	Targets      []geo.Position
	TimeStep     float64
	TimeMax      float64
	MaxEigenrays int // 0 = disabled

	Spreading              spreading.Spreader
	ReflectionRecursionCap int // default 4

	EigenrayListeners  []EigenrayListener
	EigenverbListeners []EigenverbListener
	Telemetry          Telemetry

	Eigenrays  *eigenray.Collection
	Eigenverbs *eigenverb.Collection
}

// Queue is the wave queue state machine (spec §3/§4.5).
type Queue struct {
	params Params

	mu      sync.Mutex
	history []*wavefront.Snapshot
	t       float64
	emitted int
	done    bool
}

// NewQueue builds a queue seeded with the launch-angle ray fan's
// initial conditions at t=0.
func NewQueue(p Params) *Queue {
	if p.ReflectionRecursionCap <= 0 {
		p.ReflectionRecursionCap = 4
	}
	if p.Telemetry == nil {
		p.Telemetry = LogTelemetry{}
	}
	if p.Eigenrays == nil {
		rows, cols := len(p.Targets), 1
		p.Eigenrays = eigenray.NewCollection(rows, cols, p.Frequencies)
	}
	if p.Eigenverbs == nil {
		p.Eigenverbs = eigenverb.NewCollection(1.5)
	}

	q := &Queue{params: p}
	s0 := wavefront.NewSnapshot(len(p.DEAngles), len(p.AZAngles))
	east, north, up := geo.LocalTangentBasis(p.Source)
	for d, de := range p.DEAngles {
		for a, az := range p.AZAngles {
			i := s0.Index(d, a)
			s0.Position[i] = p.Source
			s0.Direction[i] = launchDirection(de, az, east, north, up)
		}
	}
	s0.UpdateDerivs(p.Env)
	q.history = append(q.history, s0)
	return q
}

// launchDirection builds the unit Direction for depression/elevation
// de (radians, up-positive) and azimuth az (radians, compass bearing)
// from the local tangent basis.
func launchDirection(de, az float64, east, north, up geo.Direction) geo.Direction {
	horiz := math.Cos(de)
	d := geo.Scale(up, math.Sin(de))
	d = geo.Add(d, geo.Scale(north, horiz*math.Cos(az)))
	d = geo.Add(d, geo.Scale(east, horiz*math.Sin(az)))
	return geo.Normalize(d)
}

func directionToDEAZ(dir geo.Direction, east, north, up geo.Direction) (de, az float64) {
	n := geo.Normalize(dir)
	de = math.Asin(clamp(geo.Dot(n, up), -1, 1))
	az = math.Atan2(geo.Dot(n, east), geo.Dot(n, north))
	if az < 0 {
		az += 2 * math.Pi
	}
	return
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// snapshots still in the trimmed history, indexed from the newest.
func (q *Queue) next() *wavefront.Snapshot { return q.at(1) }
func (q *Queue) curr() *wavefront.Snapshot { return q.at(2) }
func (q *Queue) prev() *wavefront.Snapshot { return q.at(3) }
func (q *Queue) past() *wavefront.Snapshot { return q.at(4) }

// at returns the nth-from-newest snapshot (1 = newest), or nil if the
// history is not yet that deep.
func (q *Queue) at(fromNewest int) *wavefront.Snapshot {
	idx := len(q.history) - fromNewest
	if idx < 0 {
		return nil
	}
	return q.history[idx]
}

// Done reports whether the queue has reached a normal termination
// condition (spec §4.5 failure semantics: "running past time_max or an
// eigenray count limit is a normal termination").
func (q *Queue) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

// Run steps the queue until it terminates normally or ctx is
// cancelled. Cancellation is cooperative, checked only between steps
// (spec §5: "no preemption"); an aborted run leaves all previously
// emitted artefacts valid and does not publish a partial collection
// beyond what was already emitted.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if q.Done() {
			return nil
		}
		q.Step()
	}
}

// Step advances the queue by one Δt: integrate, reflect, find edges,
// compute CPAs one step behind, emit eigenrays and eigenverbs, rotate
// the ring (spec §4.5).
func (q *Queue) Step() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.done {
		return
	}

	latest := q.history[len(q.history)-1]
	var next *wavefront.Snapshot
	if len(q.history) < 4 {
		next = q.rk3Step(latest)
	} else {
		next = q.ab3Step()
	}
	next.Time = latest.Time + q.params.TimeStep
	for i := range next.Distance {
		if !next.Valid[i] {
			continue
		}
		next.Distance[i] = latest.Distance[i] + geo.StraightLineDistance(latest.Position[i], next.Position[i])
	}

	reflectedThisStep := make([]eigenverb.Interface, next.SizeDE*next.SizeAZ)
	reflectedFlag := make([]bool, len(reflectedThisStep))
	q.reflect(latest, next, reflectedFlag, reflectedThisStep)

	next.UpdateDerivs(q.params.Env)
	next.FindEdges()

	q.history = append(q.history, next)
	if len(q.history) > 4 {
		q.history = q.history[1:]
	}
	q.t = next.Time

	cpaBase := q.curr()
	if cpaBase != nil {
		q.emitEigenrays(cpaBase)
	}
	q.emitEigenverbs(latest, next, reflectedFlag, reflectedThisStep)

	if q.t >= q.params.TimeMax {
		q.done = true
	}
	if q.params.MaxEigenrays > 0 && q.emitted >= q.params.MaxEigenrays {
		q.done = true
	}
}

// rk3Step advances every cell of latest by one Δt using classical
// third-order Runge-Kutta (three ocean derivative evaluations per
// cell), the start-up integrator used while the ring has fewer than
// four snapshots (spec §4.5 step 1).
func (q *Queue) rk3Step(latest *wavefront.Snapshot) *wavefront.Snapshot {
	dt := q.params.TimeStep
	env := q.params.Env
	next := wavefront.NewSnapshot(latest.SizeDE, latest.SizeAZ)
	next.Counters = append([]wavefront.Counters(nil), latest.Counters...)

	for i := range latest.Position {
		if !latest.Valid[i] {
			next.Valid[i] = false
			continue
		}
		pos0, dir0 := latest.Position[i], latest.Direction[i]

		k1p, k1d, ok1 := wavefront.CellDerivs(pos0, dir0, env)
		if !ok1 {
			q.invalidate(next, i)
			continue
		}
		posA := geo.Step(pos0, geo.Scale(k1p, dt/2))
		dirA := geo.Normalize(geo.Add(dir0, geo.Scale(k1d, dt/2)))
		k2p, k2d, ok2 := wavefront.CellDerivs(posA, dirA, env)
		if !ok2 {
			q.invalidate(next, i)
			continue
		}
		posB := geo.Step(pos0, geo.Add(geo.Scale(k1p, -dt), geo.Scale(k2p, 2*dt)))
		dirB := geo.Normalize(geo.Add(dir0, geo.Add(geo.Scale(k1d, -dt), geo.Scale(k2d, 2*dt))))
		k3p, k3d, ok3 := wavefront.CellDerivs(posB, dirB, env)
		if !ok3 {
			q.invalidate(next, i)
			continue
		}

		combo := geo.Add(k1p, geo.Add(geo.Scale(k2p, 4), k3p))
		comboD := geo.Add(k1d, geo.Add(geo.Scale(k2d, 4), k3d))
		next.Position[i] = geo.Step(pos0, geo.Scale(combo, dt/6))
		next.Direction[i] = geo.Normalize(geo.Add(dir0, geo.Scale(comboD, dt/6)))
	}
	return next
}

// ab3Step advances every cell of the newest snapshot in the history by
// one Δt using third-order Adams-Bashforth, predicting from the
// gradients of the three newest snapshots, the steady-state integrator
// once the ring is full (spec §4.5 step 2).
func (q *Queue) ab3Step() *wavefront.Snapshot {
	dt := q.params.TimeStep
	curr, prev, past := q.history[len(q.history)-1], q.history[len(q.history)-2], q.history[len(q.history)-3]
	next := wavefront.NewSnapshot(curr.SizeDE, curr.SizeAZ)
	next.Counters = append([]wavefront.Counters(nil), curr.Counters...)

	for i := range curr.Position {
		if !curr.Valid[i] {
			next.Valid[i] = false
			continue
		}
		comboP := ab3Combo(curr.PositionGrad[i], prev.PositionGrad[i], past.PositionGrad[i])
		comboD := ab3Combo(curr.DirectionGrad[i], prev.DirectionGrad[i], past.DirectionGrad[i])
		next.Position[i] = geo.Step(curr.Position[i], geo.Scale(comboP, dt/12))
		next.Direction[i] = geo.Normalize(geo.Add(curr.Direction[i], geo.Scale(comboD, dt/12)))
		if !finiteDirection(next.Position[i]) {
			q.invalidate(next, i)
		}
	}
	return next
}

// ab3Combo computes 23*fN - 16*fN1 + 5*fN2, the classical AB3
// predictor coefficients.
func ab3Combo(fN, fN1, fN2 geo.Direction) geo.Direction {
	return geo.Add(geo.Scale(fN, 23), geo.Add(geo.Scale(fN1, -16), geo.Scale(fN2, 5)))
}

func finiteDirection(p geo.Position) bool {
	return !math.IsNaN(p.Rho) && !math.IsInf(p.Rho, 0) &&
		!math.IsNaN(p.Theta) && !math.IsInf(p.Theta, 0) &&
		!math.IsNaN(p.Phi) && !math.IsInf(p.Phi, 0)
}

func (q *Queue) invalidate(s *wavefront.Snapshot, i int) {
	s.Valid[i] = false
	d, a := i/s.SizeAZ, i%s.SizeAZ
	q.params.Telemetry.NonFiniteIntegration(d, a)
}

// emitEigenrays walks cpaBase's CPA table and builds an eigenray for
// every (target,cell) with a valid, non-edge CPA (spec §4.5 step 7).
func (q *Queue) emitEigenrays(cpaBase *wavefront.Snapshot) {
	east, north, up := geo.LocalTangentBasis(q.params.Source)
	table := cpaBase.ComputeTargetCPAs(q.params.Targets)
	for ti := range q.params.Targets {
		row := table[ti]
		for d := 0; d < cpaBase.SizeDE; d++ {
			for a := 0; a < cpaBase.SizeAZ; a++ {
				i := cpaBase.Index(d, a)
				if !cpaBase.Valid[i] || cpaBase.OnEdge[i] {
					continue
				}
				cpa := row[i]
				if !cpa.Valid {
					continue
				}
				c, _ := q.params.Env.Profile.SoundSpeed(cpaBase.Position[i])
				offset := spreading.Offset{DE: cpa.DDE, AZ: cpa.DAZ}
				intensity := q.params.Spreading.IntensityAtOffset(cpaBase, d, a, offset, c, q.params.Frequencies)
				atten := q.params.Env.Profile.Attenuation(cpaBase.Position[i], q.params.Frequencies, cpaBase.Distance[i])
				for fi := range intensity {
					if fi < len(atten) {
						intensity[fi] *= math.Pow(10, -atten[fi]/10)
					}
				}
				phase := make([]float64, len(intensity))
				de, az := directionToDEAZ(cpaBase.Direction[i], east, north, up)
				ray := eigenray.Eigenray{
					TravelTime: cpaBase.Time + cpa.DT,
					Intensity:  intensity,
					Phase:      phase,
					LaunchDE:   q.params.DEAngles[d],
					LaunchAZ:   q.params.AZAngles[a],
					ArrivalDE:  de,
					ArrivalAZ:  az,
					Counters:   cpaBase.Counters[i],
				}
				row2, col2 := ti, 0
				q.params.Eigenrays.Add(row2, col2, ray)
				q.emitted++
				for _, l := range q.params.EigenrayListeners {
					l.OnEigenray(row2, col2, ray)
				}
			}
		}
	}
}

// emitEigenverbs builds a footprint Gaussian for every cell that
// reflected during this step's reflection pass (spec §4.5 step 8).
func (q *Queue) emitEigenverbs(latest, next *wavefront.Snapshot, reflected []bool, ifaces []eigenverb.Interface) {
	for i, did := range reflected {
		if !did {
			continue
		}
		d, a := i/next.SizeAZ, i%next.SizeAZ
		c, _ := q.params.Env.Profile.SoundSpeed(next.Position[i])
		grazing := grazingAngle(next.Direction[i], q.params.Env, next.Position[i], ifaces[i])
		sinGrazing := math.Sin(grazing)
		if math.Abs(sinGrazing) < 1e-3 {
			sinGrazing = 1e-3
		}
		length := spreading.WidthDE(next, d, a) / math.Abs(sinGrazing)
		width := spreading.WidthAZ(next, d, a)

		offset := spreading.Offset{}
		power := q.params.Spreading.IntensityAtOffset(next, d, a, offset, c, q.params.Frequencies)
		atten := q.params.Env.Profile.Attenuation(next.Position[i], q.params.Frequencies, next.Distance[i])
		for fi := range power {
			if fi < len(atten) {
				power[fi] *= math.Pow(10, -atten[fi]/10)
			}
		}

		east, north, _ := geo.LocalTangentBasis(next.Position[i])

		verb := &eigenverb.Eigenverb{
			TravelTime:  next.Time,
			Power:       power,
			Length:      length,
			Width:       width,
			Position:    next.Position[i],
			Direction:   headingOf(next.Direction[i], east, north),
			Grazing:     grazing,
			SoundSpeed:  c,
			LaunchDEIdx: d,
			LaunchAZIdx: a,
			LaunchDE:    q.params.DEAngles[d],
			LaunchAZ:    q.params.AZAngles[a],
			Counters:    next.Counters[i],
		}
		q.params.Eigenverbs.Add(ifaces[i], verb)
		for _, l := range q.params.EigenverbListeners {
			l.OnEigenverb(ifaces[i], verb)
		}
	}
}

func headingOf(dir, east, north geo.Direction) float64 {
	h := math.Atan2(geo.Dot(dir, east), geo.Dot(dir, north))
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}

func grazingAngle(dir geo.Direction, env *ocean.Environment, pos geo.Position, iface eigenverb.Interface) float64 {
	var normal geo.Direction
	switch iface {
	case eigenverb.InterfaceSurface:
		_, normal = env.Surface.Height(pos)
	default:
		_, normal = env.Bottom.Height(pos)
	}
	return math.Asin(clamp(math.Abs(geo.Dot(geo.Normalize(dir), normal)), -1, 1))
}

// reflect scans every valid cell of next for a crossing of the surface,
// bottom, or a volume layer relative to latest, and resolves it via the
// reflection solver (C6.r). Surviving cells are left unreflected.
func (q *Queue) reflect(latest, next *wavefront.Snapshot, reflectedFlag []bool, reflectedIface []eigenverb.Interface) {
	env := q.params.Env
	for i := range next.Position {
		if !next.Valid[i] {
			continue
		}
		q.resolveCell(latest, next, i, 0, reflectedFlag, reflectedIface, env)
	}
}

// resolveCell recursively resolves collisions for cell i within one
// Δt, per the reflection solver contract (spec §4.6): detect a
// crossing, reflect about the interface normal at a linearly
// interpolated collision point (a first-order simplification of the
// spec's quadratic Taylor back-solve — consistent with CPA's decoupled
// parabolic-fit simplification in package wavefront), then
// re-integrate the remainder of Δt with a single Euler step using the
// same per-cell derivative evaluation. Recurses up to the configured
// cap before giving up and marking the cell invalid.
func (q *Queue) resolveCell(latest, next *wavefront.Snapshot, i, depth int, reflectedFlag []bool, reflectedIface []eigenverb.Interface, env *ocean.Environment) {
	if depth >= q.params.ReflectionRecursionCap {
		d, a := i/next.SizeAZ, i%next.SizeAZ
		q.params.Telemetry.CollisionRefinementExceeded(d, a)
		next.Valid[i] = false
		return
	}

	iface, eps, normal, ok := detectCrossing(latest.Position[i], next.Position[i], env)
	if !ok {
		return
	}

	disp := geo.LocalDisplacement(latest.Position[i], next.Position[i])
	crossPos := geo.Step(latest.Position[i], geo.Scale(disp, eps))
	crossDir := geo.Normalize(geo.Add(geo.Scale(latest.Direction[i], 1-eps), geo.Scale(next.Direction[i], eps)))
	reflectedDir := geo.Reflect(crossDir, normal)

	remaining := (1 - eps) * q.params.TimeStep
	posGrad, _, ok := wavefront.CellDerivs(crossPos, reflectedDir, env)
	if !ok {
		q.invalidate(next, i)
		return
	}
	newPos := geo.Step(crossPos, geo.Scale(posGrad, remaining))

	next.Position[i] = newPos
	next.Direction[i] = reflectedDir
	switch iface {
	case eigenverb.InterfaceSurface:
		next.Counters[i].Surface++
	case eigenverb.InterfaceBottom:
		next.Counters[i].Bottom++
	case eigenverb.InterfaceUpperVolume:
		next.Counters[i].UpperVol++
	case eigenverb.InterfaceLowerVolume:
		next.Counters[i].LowerVol++
	}
	reflectedFlag[i] = true
	reflectedIface[i] = iface

	// Check whether the remainder of the step crosses a second time;
	// if so recurse with a synthetic one-cell snapshot pair rooted at
	// the reflection point.
	if _, _, _, crossedAgain := detectCrossing(crossPos, newPos, env); crossedAgain {
		latestProxy := &wavefront.Snapshot{SizeDE: next.SizeDE, SizeAZ: next.SizeAZ, Position: []geo.Position{crossPos}, Direction: []geo.Direction{reflectedDir}}
		nextProxy := &wavefront.Snapshot{SizeDE: next.SizeDE, SizeAZ: next.SizeAZ, Position: []geo.Position{newPos}, Direction: []geo.Direction{reflectedDir}, Counters: []wavefront.Counters{next.Counters[i]}, Valid: []bool{true}}
		q.resolveCell(latestProxy, nextProxy, 0, depth+1, []bool{false}, []eigenverb.Interface{iface}, env)
		next.Position[i] = nextProxy.Position[0]
		next.Direction[i] = nextProxy.Direction[0]
		next.Counters[i] = nextProxy.Counters[0]
		if !nextProxy.Valid[0] {
			next.Valid[i] = false
		}
	}
}

// detectCrossing reports whether the straight path from posL to posN
// crosses the surface, bottom, or a volume layer, and if so which
// interface, the fractional step ε at which the sign of
// (rho - boundaryRho) changes (linear interpolation), and the
// boundary's outward normal there.
func detectCrossing(posL, posN geo.Position, env *ocean.Environment) (iface eigenverb.Interface, eps float64, normal geo.Direction, ok bool) {
	if env.Surface != nil {
		if e, n, found := crossingOf(posL, posN, env.Surface); found {
			return eigenverb.InterfaceSurface, e, n, true
		}
	}
	if env.Bottom != nil {
		if e, n, found := crossingOf(posL, posN, env.Bottom); found {
			return eigenverb.InterfaceBottom, e, n, true
		}
	}
	for vi, v := range env.Volumes {
		rhoL, _ := v.Depth(posL)
		rhoN, _ := v.Depth(posN)
		signL, signN := posL.Rho-rhoL, posN.Rho-rhoN
		if signL == 0 || signN == 0 || (signL > 0) == (signN > 0) {
			continue
		}
		e := signL / (signL - signN)
		kind := eigenverb.InterfaceUpperVolume
		if vi%2 == 1 {
			kind = eigenverb.InterfaceLowerVolume
		}
		return kind, e, geo.Direction{Rho: 1}, true
	}
	return 0, 0, geo.Direction{}, false
}

func crossingOf(posL, posN geo.Position, b ocean.Boundary) (eps float64, normal geo.Direction, ok bool) {
	rhoL, _ := b.Height(posL)
	rhoN, normalN := b.Height(posN)
	signL, signN := posL.Rho-rhoL, posN.Rho-rhoN
	if signL == 0 || signN == 0 || (signL > 0) == (signN > 0) {
		return 0, geo.Direction{}, false
	}
	return signL / (signL - signN), normalN, true
}
