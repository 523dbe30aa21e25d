// Package rvbdiag renders PNG diagnostic plots for propagation and
// reverberation scenarios (spec §8: "each scenario test should be able
// to emit a transmission-loss-vs-range plot and an envelope
// intensity-vs-time plot for visual inspection"). It is a leaf
// package: nothing under internal/waveq3d, internal/biverb, or
// internal/envelope imports it, so scenario tests can opt into
// plotting without the core engine acquiring a gonum/plot dependency
// at propagation time.
//
// Grounded on internal/lidar/monitor.GridPlotter: gonum.org/v1/plot's
// plot.New/plotter.XYs/plotter.NewLine/(*plot.Plot).Save shape, the
// same library the teacher uses for its per-ring background-tracking
// plots.
package rvbdiag

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/deepreverb/internal/eigenray"
)

// TLPoint is one target's range (m) on a TL-vs-range plot.
// TransmissionLossVsRange draws one line through all targets in the
// order given; it does not sort them by range, and Label is not drawn.
type TLPoint struct {
	RangeMeters float64
	Label       string
}

// TransmissionLossVsRange writes a TL-vs-range PNG to path. ranges and
// sums must be parallel slices (one entry per target), frequencyIdx
// selects which frequency column of each TargetSum to plot.
func TransmissionLossVsRange(path string, ranges []TLPoint, sums []eigenray.TargetSum, frequencyIdx int, coherent bool) error {
	if len(ranges) != len(sums) {
		return fmt.Errorf("rvbdiag: ranges and sums must be parallel slices, got %d and %d", len(ranges), len(sums))
	}

	p := plot.New()
	p.Title.Text = "Transmission Loss vs Range"
	p.X.Label.Text = "Range (m)"
	p.Y.Label.Text = "Transmission Loss (dB)"

	pts := make(plotter.XYs, 0, len(sums))
	for i, sum := range sums {
		if frequencyIdx >= len(sum.CoherentIntensity) || frequencyIdx >= len(sum.IncoherentIntensity) {
			continue
		}
		intensity := sum.IncoherentIntensity[frequencyIdx]
		if coherent {
			intensity = sum.CoherentIntensity[frequencyIdx]
		}
		pts = append(pts, plotter.XY{
			X: ranges[i].RangeMeters,
			Y: -eigenray.TransmissionLossDB(intensity),
		})
	}
	if len(pts) == 0 {
		return fmt.Errorf("rvbdiag: no finite transmission-loss samples to plot")
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build TL line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save TL plot: %w", err)
	}
	return nil
}

// EnvelopeIntensityVsTime renders the reverberation-intensity time
// series for one (sourceBeam,receiverBeam,frequency) cell of an
// envelope collection to a PNG at path.
func EnvelopeIntensityVsTime(path string, timeAxis, intensity []float64) error {
	if len(timeAxis) != len(intensity) {
		return fmt.Errorf("rvbdiag: timeAxis and intensity must be parallel slices, got %d and %d", len(timeAxis), len(intensity))
	}

	p := plot.New()
	p.Title.Text = "Reverberation Envelope Intensity vs Time"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Intensity (linear)"

	pts := make(plotter.XYs, len(timeAxis))
	for i := range timeAxis {
		pts[i] = plotter.XY{X: timeAxis[i], Y: intensity[i]}
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build envelope line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save envelope plot: %w", err)
	}
	return nil
}
