// Command reverbsim runs a single monostatic propagation scenario end
// to end: build a flat-ocean environment, launch one wave queue from
// the source with one target, hand its eigenrays and eigenverbs to a
// monostatic pair composer, persist the eigenray, eigenverb and
// envelope collections to sqlite (biverbs are not persisted), and
// optionally render TL-vs-range and envelope diagnostics (spec §8).
//
// Flag-driven single-purpose CLI in the style of the teacher's
// cmd/bg-sweep and cmd/transits-backfill commands: no subcommands, a
// flat flag.FlagSet, fail fast to stderr with os.Exit(1).
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/deepreverb/internal/bistatic"
	"github.com/banshee-data/deepreverb/internal/biverb"
	"github.com/banshee-data/deepreverb/internal/envelope"
	"github.com/banshee-data/deepreverb/internal/geo"
	"github.com/banshee-data/deepreverb/internal/ocean"
	"github.com/banshee-data/deepreverb/internal/rvbconfig"
	"github.com/banshee-data/deepreverb/internal/rvbdiag"
	"github.com/banshee-data/deepreverb/internal/rvblog"
	"github.com/banshee-data/deepreverb/internal/rvbpersist"
	"github.com/banshee-data/deepreverb/internal/spreading"
	"github.com/banshee-data/deepreverb/internal/version"
	"github.com/banshee-data/deepreverb/internal/waveq3d"
)

func main() {
	var (
		versionFlag  = flag.Bool("version", false, "print version and exit")
		versionShort = flag.Bool("v", false, "print version and exit (shorthand)")
		runID        = flag.String("run-id", "", "identifier this run's rows are tagged with (defaults to a generated UUID)")
		dbPath       = flag.String("db", "reverbsim.db", "sqlite database path (created if missing)")
		sourceLat    = flag.Float64("source-lat", 36.0, "source latitude, degrees")
		sourceLon    = flag.Float64("source-lon", 16.0, "source longitude, degrees")
		sourceDepth  = flag.Float64("source-depth", 100, "source depth below surface, meters")
		targetLat    = flag.Float64("target-lat", 36.01, "target latitude, degrees")
		targetLon    = flag.Float64("target-lon", 16.0, "target longitude, degrees")
		targetDepth  = flag.Float64("target-depth", 100, "target depth below surface, meters")
		oceanDepth   = flag.Float64("ocean-depth", 2000, "flat ocean depth, meters")
		soundSpeed   = flag.Float64("sound-speed", 1500, "isovelocity sound speed, m/s")
		windSpeed    = flag.Float64("wind-speed-mps", 5, "wind speed driving Chapman-Harris surface scattering, m/s")
		frequencyHz  = flag.Float64("frequency-hz", 1000, "source frequency, Hz")
		deMinDeg     = flag.Float64("de-min-deg", -20, "minimum launch depression/elevation angle, degrees")
		deMaxDeg     = flag.Float64("de-max-deg", 20, "maximum launch depression/elevation angle, degrees")
		deCount      = flag.Int("de-count", 41, "number of launch DE angles")
		azMinDeg     = flag.Float64("az-min-deg", -10, "minimum launch azimuth, degrees relative to bearing")
		azMaxDeg     = flag.Float64("az-max-deg", 10, "maximum launch azimuth, degrees relative to bearing")
		azCount      = flag.Int("az-count", 1, "number of launch AZ angles")
		timeStep     = flag.Float64("time-step", 0.01, "integrator time step, seconds")
		timeMax      = flag.Float64("time-max", 5.0, "propagation time horizon, seconds")
		plotDir      = flag.String("plot-dir", "", "if set, write TL-vs-range and envelope PNGs here")
		debugLogging = flag.Bool("debug", false, "enable per-step wavefront tracing")
	)
	flag.Parse()

	if *versionFlag || *versionShort {
		fmt.Printf("reverbsim v%s (git SHA: %s)\n", version.Version, version.GitSHA)
		os.Exit(0)
	}

	if *runID == "" {
		generated := uuid.New().String()
		runID = &generated
	}

	rvblog.SetDebug(*debugLogging)
	cfg := rvbconfig.EmptyTuningConfig()

	source := geo.FromGeodetic(*sourceLat, *sourceLon, -*sourceDepth)
	target := geo.FromGeodetic(*targetLat, *targetLon, -*targetDepth)
	bearing := geo.Bearing(source, target)

	surfaceRho := source.Rho + *sourceDepth // altitude 0
	bottomRho := surfaceRho - *oceanDepth
	env := &ocean.Environment{
		Surface: ocean.NewChapmanHarrisSurface(surfaceRho, *windSpeed),
		Bottom:  ocean.NewFlatBottom(bottomRho),
		Profile: ocean.NewIsovelocityProfile(*soundSpeed),
	}

	deAngles := linspaceDeg(*deMinDeg, *deMaxDeg, *deCount)
	azAngles := offsetDeg(bearing, *azMinDeg, *azMaxDeg, *azCount)

	params := waveq3d.Params{
		Env:                    env,
		Frequencies:            []float64{*frequencyHz},
		Source:                 source,
		DEAngles:               deAngles,
		AZAngles:               azAngles,
		Targets:                []geo.Position{target},
		TimeStep:               *timeStep,
		TimeMax:                *timeMax,
		ReflectionRecursionCap: cfg.GetReflectionRecursionCap(),
		Spreading:              &spreading.ClassicalSpreading{SourceSpeed: *soundSpeed, InitialSolidAngle: solidAngle(deAngles, azAngles)},
	}

	queue := waveq3d.NewQueue(params)
	if err := queue.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "reverbsim: propagation failed: %v\n", err)
		os.Exit(1)
	}

	store, err := rvbpersist.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reverbsim: open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.InsertEigenrays(ctx, *runID, params.Eigenrays); err != nil {
		fmt.Fprintf(os.Stderr, "reverbsim: persist eigenrays: %v\n", err)
		os.Exit(1)
	}
	if err := store.InsertEigenverbs(ctx, *runID, params.Eigenverbs, params.Frequencies); err != nil {
		fmt.Fprintf(os.Stderr, "reverbsim: persist eigenverbs: %v\n", err)
		os.Exit(1)
	}

	sums := params.Eigenrays.SumEigenrays(true)
	for _, sum := range sums {
		tl := math.Inf(1)
		if len(sum.IncoherentIntensity) > 0 {
			tl = -10 * math.Log10(maxFinite(sum.IncoherentIntensity[0], 1e-300))
		}
		meanTT, stdDevTT := params.Eigenrays.ArrivalSpread(sum.Row, sum.Col, 0)
		fmt.Printf("target %d: transmission loss = %.1f dB, arrival spread = %.4fs +/- %.4fs\n", sum.Row, tl, meanTT, stdDevTT)
	}

	// Monostatic composition: same sensor on both legs of the pair,
	// which publishes direct-path rays immediately and never waits on
	// a second leg (bistatic.Composer's ready gate requires
	// Source != Receiver before it fires biverb generation).
	pair := bistatic.Pair{Source: "reverbsim-source", Receiver: "reverbsim-source"}
	envGen := envelope.NewGenerator(
		envelope.NewCollection(1, 1, params.Frequencies, timeAxis(*timeMax, *timeStep)),
		unityBeamGain, unityBeamGain,
	)
	composer := bistatic.NewComposer(pair, bistatic.Params{
		Scatter:      env.Surface.Scattering,
		BiverbParams: biverb.Params{Frequencies: params.Frequencies, DistanceGateMultiple: 6, PulseLength: 0},
		Envelope:     envGen,
	})
	composer.UpdateWavefrontData("reverbsim-source", params.Eigenrays, params.Eigenverbs)
	composer.Close()

	if err := store.InsertEnvelope(ctx, *runID, envGen.Collection); err != nil {
		fmt.Fprintf(os.Stderr, "reverbsim: persist envelope: %v\n", err)
		os.Exit(1)
	}

	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "reverbsim: create plot dir: %v\n", err)
			os.Exit(1)
		}
		ranges := make([]rvbdiag.TLPoint, len(sums))
		for i := range sums {
			ranges[i] = rvbdiag.TLPoint{RangeMeters: geo.GreatCircleRange(source, target)}
		}
		if err := rvbdiag.TransmissionLossVsRange(*plotDir+"/tl_vs_range.png", ranges, sums, 0, true); err != nil {
			fmt.Fprintf(os.Stderr, "reverbsim: warning: TL plot: %v\n", err)
		}
		if err := rvbdiag.EnvelopeIntensityVsTime(*plotDir+"/envelope.png", envGen.Collection.TimeAxis, envGen.Collection.Intensity[0][0][0]); err != nil {
			fmt.Fprintf(os.Stderr, "reverbsim: warning: envelope plot: %v\n", err)
		}
	}

	fmt.Printf("reverbsim: run %q complete, %d eigenrays persisted\n", *runID, len(params.Eigenrays.Rays(0, 0)))
}

func linspaceDeg(minDeg, maxDeg float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = minDeg * math.Pi / 180
		return out
	}
	step := (maxDeg - minDeg) / float64(n-1)
	for i := range out {
		out[i] = (minDeg + step*float64(i)) * math.Pi / 180
	}
	return out
}

func offsetDeg(baseRad, minDeg, maxDeg float64, n int) []float64 {
	rel := linspaceDeg(minDeg, maxDeg, n)
	out := make([]float64, n)
	for i, r := range rel {
		out[i] = baseRad + r
	}
	return out
}

func solidAngle(deAngles, azAngles []float64) float64 {
	if len(deAngles) < 2 || len(azAngles) < 1 {
		return 0.01
	}
	dDE := (deAngles[len(deAngles)-1] - deAngles[0]) / float64(len(deAngles)-1)
	dAZ := 2 * math.Pi / math.Max(1, float64(len(azAngles)))
	return math.Abs(dDE * dAZ)
}

func timeAxis(timeMax, timeStep float64) []float64 {
	n := int(2*timeMax/timeStep) + 1
	out := make([]float64, n)
	dt := 2 * timeMax / float64(n-1)
	for i := range out {
		out[i] = float64(i) * dt
	}
	return out
}

func unityBeamGain(beam, freqIdx int, launchDE, launchAZ float64) float64 { return 1.0 }

func maxFinite(v, floor float64) float64 {
	if math.IsNaN(v) || v < floor {
		return floor
	}
	return v
}
