// Package bistatic implements the bistatic pair composer (spec §4.10,
// component C10): per (source,receiver) sensor pair, it holds the
// latest direct-path eigenrays and the latest source/receiver eigenverb
// collections, and drives the downstream biverb and envelope
// recomputation whenever either leg's wavefront data is replaced.
//
// Recomputation runs as a cancellable background task rather than
// inline in the update call, the same context+mutex+done-channel
// lifecycle internal/lidar's BackgroundFlusher uses for its periodic
// flush loop — adapted here to supersession (abort the in-flight task
// and start a fresh one) rather than a ticker.
package bistatic

import (
	"context"
	"sync"

	"github.com/banshee-data/deepreverb/internal/biverb"
	"github.com/banshee-data/deepreverb/internal/eigenray"
	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/envelope"
	"github.com/banshee-data/deepreverb/internal/rvblog"
)

// SensorID names a sensor participating in a pair. Composer treats two
// equal SensorIDs as the monostatic case (spec §4.10).
type SensorID string

// Listener receives a pair's published collections as they are
// recomputed. All three methods may be called concurrently with each
// other (different recomputation stages) but never concurrently with
// themselves for the same Composer.
type Listener interface {
	OnDirectPath(pair Pair, rays *eigenray.Collection)
	OnBiverbs(pair Pair, biverbs []*biverb.Biverb)
	OnEnvelope(pair Pair, env *envelope.Collection)
}

// Pair identifies a source/receiver sensor pair.
type Pair struct {
	Source, Receiver SensorID
}

// Params bundles the composer's per-pair tunables, passed straight
// through to the biverb generator and envelope generator it drives.
type Params struct {
	Interfaces   []eigenverb.Interface
	Scatter      biverb.ScatteringFunc
	BiverbParams biverb.Params
	Envelope     *envelope.Generator
}

// Composer tracks one sensor pair's propagation state and republishes
// derived collections as legs are updated (spec §3 Ownership: "latest
// wins, stale in-flight results are discarded").
type Composer struct {
	pair   Pair
	params Params

	mu           sync.Mutex
	sourceVerbs  *eigenverb.Collection
	receiverVerbs *eigenverb.Collection
	directRays   *eigenray.Collection
	biverbs      []*biverb.Biverb

	biverbCancel   context.CancelFunc
	biverbDone     chan struct{}
	envelopeCancel context.CancelFunc
	envelopeDone   chan struct{}

	listeners []Listener
}

// NewComposer builds a Composer for pair, with no wavefront data yet.
func NewComposer(pair Pair, params Params, listeners ...Listener) *Composer {
	return &Composer{pair: pair, params: params, listeners: listeners}
}

// Pair returns the sensor pair this composer tracks.
func (c *Composer) Pair() Pair { return c.pair }

// UpdateWavefrontData replaces the wavefront outputs for one leg of the
// pair (spec §4.10 update_wavefront_data): the direct-path eigenray
// collection a source-side wave queue emitted with the receiver as a
// target, and/or the eigenverb collection either leg emitted. Any
// in-flight biverb recomputation is aborted before applying the
// update, since it was computed against data this call supersedes.
func (c *Composer) UpdateWavefrontData(sensor SensorID, rays *eigenray.Collection, verbs *eigenverb.Collection) {
	c.mu.Lock()
	c.abortBiverbLocked()

	if sensor == c.pair.Source {
		if verbs != nil {
			c.sourceVerbs = verbs
		}
		if rays != nil {
			c.directRays = rays
		}
	}
	if sensor == c.pair.Receiver && c.pair.Receiver != c.pair.Source {
		if verbs != nil {
			c.receiverVerbs = verbs
		}
		// A receiver-side wave queue run by reciprocity reports arrival
		// angles at the original source as its own "launch" angles; swap
		// launch/arrival back so direct-path eigenrays always describe
		// the true source->receiver sense regardless of which leg
		// produced them (spec §4.10, open question resolution below).
		if rays != nil {
			c.directRays = reciprocitySwap(rays)
		}
	}

	ready := c.sourceVerbs != nil && c.receiverVerbs != nil
	directRays := c.directRays
	sourceVerbs, receiverVerbs := c.sourceVerbs, c.receiverVerbs
	c.mu.Unlock()

	if directRays != nil {
		for _, l := range c.listeners {
			l.OnDirectPath(c.pair, directRays)
		}
	}
	if ready {
		c.spawnBiverbTask(sourceVerbs, receiverVerbs)
	}
}

// reciprocitySwap returns a copy of rays' target-indexed eigenrays with
// LaunchDE/LaunchAZ and ArrivalDE/ArrivalAZ exchanged on every ray. The
// monostatic case never calls this (source==receiver skips the swap
// branch above); for a true bistatic pair whichever leg is cheaper to
// re-run (by reciprocity, propagation time is path-symmetric) may be
// the receiver, and its eigenray angles are reported from the
// receiver's own point of view.
func reciprocitySwap(rays *eigenray.Collection) *eigenray.Collection {
	rows, cols := rays.Dims()
	out := eigenray.NewCollection(rows, cols, rays.Frequencies)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			for _, r := range rays.Rays(row, col) {
				r.LaunchDE, r.ArrivalDE = r.ArrivalDE, r.LaunchDE
				r.LaunchAZ, r.ArrivalAZ = r.ArrivalAZ, r.LaunchAZ
				out.Add(row, col, r)
			}
		}
	}
	return out
}

// spawnBiverbTask starts a fresh biverb recomputation in the
// background. Caller must not hold c.mu.
func (c *Composer) spawnBiverbTask(sourceVerbs, receiverVerbs *eigenverb.Collection) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.biverbCancel = cancel
	c.biverbDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ifaces := c.params.Interfaces
		if len(ifaces) == 0 {
			ifaces = []eigenverb.Interface{eigenverb.InterfaceSurface, eigenverb.InterfaceBottom, eigenverb.InterfaceUpperVolume, eigenverb.InterfaceLowerVolume}
		}
		var out []*biverb.Biverb
		for _, iface := range ifaces {
			select {
			case <-ctx.Done():
				rvblog.Debugf("bistatic: biverb task for pair %+v aborted", c.pair)
				return
			default:
			}
			out = append(out, biverb.Generate(sourceVerbs, receiverVerbs, iface, c.params.Scatter, c.params.BiverbParams)...)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.updateBiverbs(out)
	}()
}

// abortBiverbLocked cancels and waits for any in-flight biverb task.
// Caller must hold c.mu; it is released and reacquired across the
// wait.
func (c *Composer) abortBiverbLocked() {
	cancel, done := c.biverbCancel, c.biverbDone
	c.biverbCancel, c.biverbDone = nil, nil
	if cancel == nil {
		return
	}
	cancel()
	c.mu.Unlock()
	<-done
	c.mu.Lock()
}

// updateBiverbs publishes a freshly computed biverb set (spec §4.10
// update_biverbs) and spawns the downstream envelope recomputation,
// aborting any envelope task already in flight against the superseded
// set.
func (c *Composer) updateBiverbs(biverbs []*biverb.Biverb) {
	c.mu.Lock()
	c.abortEnvelopeLocked()
	c.biverbs = biverbs
	c.mu.Unlock()

	for _, l := range c.listeners {
		l.OnBiverbs(c.pair, biverbs)
	}

	if c.params.Envelope == nil {
		return
	}
	c.spawnEnvelopeTask(biverbs)
}

func (c *Composer) spawnEnvelopeTask(biverbs []*biverb.Biverb) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.envelopeCancel = cancel
	c.envelopeDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for _, bv := range biverbs {
			select {
			case <-ctx.Done():
				rvblog.Debugf("bistatic: envelope task for pair %+v aborted", c.pair)
				return
			default:
			}
			c.params.Envelope.Add(bv)
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.updateEnvelope(c.params.Envelope.Collection)
	}()
}

func (c *Composer) abortEnvelopeLocked() {
	cancel, done := c.envelopeCancel, c.envelopeDone
	c.envelopeCancel, c.envelopeDone = nil, nil
	if cancel == nil {
		return
	}
	cancel()
	c.mu.Unlock()
	<-done
	c.mu.Lock()
}

// updateEnvelope publishes a freshly computed envelope collection
// (spec §4.10 update_envelope).
func (c *Composer) updateEnvelope(env *envelope.Collection) {
	for _, l := range c.listeners {
		l.OnEnvelope(c.pair, env)
	}
}

// Close aborts any in-flight biverb/envelope tasks and waits for them
// to finish, releasing the composer's background work before it is
// discarded.
func (c *Composer) Close() {
	c.mu.Lock()
	c.abortBiverbLocked()
	c.abortEnvelopeLocked()
	c.mu.Unlock()
}
