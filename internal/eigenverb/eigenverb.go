// Package eigenverb implements the eigenverb collection (spec §4.9,
// component C9): per-interface Gaussian beam-footprint records with an
// R-tree-backed spatial index for neighbourhood queries.
//
// The spatial index is github.com/ctessum/geom/index/rtree, the same
// library the retrieval pack's inmap framework uses to regrid
// irregular polygon data (other_examples/*-inmap__framework.go.go):
// items implement a Bounds() *geom.Bounds method and are queried back
// out by SearchIntersect.
package eigenverb

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/wavefront"
)

// Interface names the reverberation-producing boundary an eigenverb
// was recorded against.
type Interface int

const (
	InterfaceBottom Interface = iota
	InterfaceSurface
	InterfaceUpperVolume
	InterfaceLowerVolume
)

// Eigenverb is a Gaussian projection of an acoustic ray onto a
// reverberation interface at its collision point (spec §3).
type Eigenverb struct {
	TravelTime float64
	Power      []float64 // per frequency, linear
	Length     float64
	Width      float64
	Position   geo.Position
	// Direction is the compass heading of the length axis (radians
	// clockwise from north).
	Direction float64
	// Grazing is the grazing angle (radians, up-positive).
	Grazing    float64
	SoundSpeed               float64
	LaunchDEIdx, LaunchAZIdx int
	LaunchDE, LaunchAZ       float64
	Counters                 wavefront.Counters
}

// LengthSq and WidthSq are exported as methods rather than stored
// fields: spec.md lists length²/width² as data-model fields, but they
// are a pure function of Length/Width and storing both invites drift.
func (e *Eigenverb) LengthSq() float64 { return e.Length * e.Length }
func (e *Eigenverb) WidthSq() float64  { return e.Width * e.Width }

// boundingBox returns the axis-aligned geographic bounding box (in
// degrees) for e, with a 1.5-sigma halo around the footprint scaled
// by cos(latitude) in longitude (spec §4.9).
func boundingBox(e *Eigenverb, haloSigma float64) (lonMin, latMin, lonMax, latMax float64) {
	lat, lon, _ := geo.ToGeodetic(e.Position)
	halfDiag := haloSigma * math.Hypot(e.Length, e.Width) / 2
	latRad := lat * math.Pi / 180
	metresPerDegLat := 111_320.0
	metresPerDegLon := 111_320.0 * math.Cos(latRad)
	if metresPerDegLon < 1 {
		metresPerDegLon = 1
	}
	dLat := halfDiag / metresPerDegLat
	dLon := halfDiag / metresPerDegLon
	return lon - dLon, lat - dLat, lon + dLon, lat + dLat
}

// item is the rtree-indexed wrapper around one eigenverb.
type item struct {
	verb   *Eigenverb
	bounds *geom.Bounds
}

func (it *item) Bounds() *geom.Bounds { return it.bounds }

// Collection stores eigenverbs per interface kind, each backed by its
// own R-tree spatial index. Populated while a wavefront propagates;
// read-only thereafter (spec §3).
type Collection struct {
	// HaloSigma is the bounding-box halo multiple (spec §4.9 default
	// 1.5).
	HaloSigma float64
	lists     map[Interface][]*Eigenverb
	trees     map[Interface]*rtree.Rtree
}

// NewCollection builds an empty collection. haloSigma <= 0 defaults
// to 1.5.
func NewCollection(haloSigma float64) *Collection {
	if haloSigma <= 0 {
		haloSigma = 1.5
	}
	return &Collection{
		HaloSigma: haloSigma,
		lists:     make(map[Interface][]*Eigenverb),
		trees:     make(map[Interface]*rtree.Rtree),
	}
}

func (c *Collection) tree(iface Interface) *rtree.Rtree {
	t, ok := c.trees[iface]
	if !ok {
		t = rtree.NewTree(25, 50)
		c.trees[iface] = t
	}
	return t
}

// Add appends v to the list for iface and inserts it into that
// interface's spatial index.
func (c *Collection) Add(iface Interface, v *Eigenverb) {
	c.lists[iface] = append(c.lists[iface], v)
	lonMin, latMin, lonMax, latMax := boundingBox(v, c.HaloSigma)
	b := &geom.Bounds{
		Min: geom.Point{X: lonMin, Y: latMin},
		Max: geom.Point{X: lonMax, Y: latMax},
	}
	c.tree(iface).Insert(&item{verb: v, bounds: b})
}

// List returns all eigenverbs recorded for iface.
func (c *Collection) List(iface Interface) []*Eigenverb {
	return c.lists[iface]
}

// FindEigenverbs returns every eigenverb on iface whose bounding box
// intersects the query box (degrees lon/lat), per spec §4.9.
func (c *Collection) FindEigenverbs(iface Interface, lonMin, latMin, lonMax, latMax float64) []*Eigenverb {
	query := &geom.Bounds{Min: geom.Point{X: lonMin, Y: latMin}, Max: geom.Point{X: lonMax, Y: latMax}}
	hits := c.tree(iface).SearchIntersect(query)
	out := make([]*Eigenverb, 0, len(hits))
	for _, h := range hits {
		if it, ok := h.(*item); ok {
			out = append(out, it.verb)
		}
	}
	return out
}
