package bistatic

import (
	"sync"
	"testing"
	"time"

	"github.com/banshee-data/deepreverb/internal/biverb"
	"github.com/banshee-data/deepreverb/internal/eigenray"
	"github.com/banshee-data/deepreverb/internal/eigenverb"
	"github.com/banshee-data/deepreverb/internal/envelope"
	"github.com/banshee-data/deepreverb/internal/geo"
)

type recordingListener struct {
	mu        sync.Mutex
	rays      int
	biverbs   int
	envelopes int
}

func (r *recordingListener) OnDirectPath(Pair, *eigenray.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rays++
}
func (r *recordingListener) OnBiverbs(Pair, []*biverb.Biverb) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.biverbs++
}
func (r *recordingListener) OnEnvelope(Pair, *envelope.Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes++
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func sampleVerbs() *eigenverb.Collection {
	c := eigenverb.NewCollection(1.5)
	c.Add(eigenverb.InterfaceBottom, &eigenverb.Eigenverb{
		Position:   geo.FromGeodetic(36, 16, -100),
		Length:     50,
		Width:      50,
		Power:      []float64{1},
		Direction:  0,
		Grazing:    0.3,
		SoundSpeed: 1500,
	})
	return c
}

func TestMonostaticPairPublishesDirectPathImmediately(t *testing.T) {
	listener := &recordingListener{}
	pair := Pair{Source: "s1", Receiver: "s1"}
	c := NewComposer(pair, Params{}, listener)

	rays := eigenray.NewCollection(1, 1, []float64{1000})
	rays.Add(0, 0, eigenray.Eigenray{TravelTime: 1, Intensity: []float64{1}, Phase: []float64{0}})

	c.UpdateWavefrontData("s1", rays, sampleVerbs())
	waitFor(t, func() bool {
		listener.mu.Lock()
		defer listener.mu.Unlock()
		return listener.rays == 1
	})
}

func TestBistaticPairWaitsForBothLegsBeforeBiverbs(t *testing.T) {
	listener := &recordingListener{}
	pair := Pair{Source: "tx", Receiver: "rx"}
	c := NewComposer(pair, Params{BiverbParams: biverb.Params{Frequencies: []float64{1000}, IntensityThreshold: 0}, Scatter: func(geo.Position, []float64, float64, float64, float64, float64) []float64 {
		return []float64{1}
	}}, listener)

	c.UpdateWavefrontData("tx", nil, sampleVerbs())
	time.Sleep(10 * time.Millisecond)
	listener.mu.Lock()
	if listener.biverbs != 0 {
		listener.mu.Unlock()
		t.Fatal("expected no biverbs published with only one leg present")
	}
	listener.mu.Unlock()

	c.UpdateWavefrontData("rx", nil, sampleVerbs())
	waitFor(t, func() bool {
		listener.mu.Lock()
		defer listener.mu.Unlock()
		return listener.biverbs == 1
	})
	c.Close()
}

func TestReciprocitySwapExchangesLaunchAndArrival(t *testing.T) {
	rays := eigenray.NewCollection(1, 1, []float64{1000})
	rays.Add(0, 0, eigenray.Eigenray{LaunchDE: 0.1, LaunchAZ: 0.2, ArrivalDE: 0.3, ArrivalAZ: 0.4, Intensity: []float64{1}, Phase: []float64{0}})

	swapped := reciprocitySwap(rays)
	out := swapped.Rays(0, 0)[0]
	if out.LaunchDE != 0.3 || out.ArrivalDE != 0.1 {
		t.Errorf("DE not swapped: launch=%v arrival=%v", out.LaunchDE, out.ArrivalDE)
	}
	if out.LaunchAZ != 0.4 || out.ArrivalAZ != 0.2 {
		t.Errorf("AZ not swapped: launch=%v arrival=%v", out.LaunchAZ, out.ArrivalAZ)
	}
}
