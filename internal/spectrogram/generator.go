// Package spectrogram renders mel spectrogram images of WAV recordings with
// highlighted detection windows.
//
// Rendering is pure Go: samples are decoded with myaudio, transformed with a
// Hann-windowed STFT and a Slaney mel filterbank, converted to decibels and
// colour mapped. Overlays and the title are drawn with a fixed bitmap font
// and the result is encoded as PNG.
package spectrogram

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/myaudio"
)

const (
	// SessionLabelMinX and DetectionLabelMinX are the earliest label
	// positions in seconds, keeping labels near t=0 readable.
	SessionLabelMinX   = 0.5
	DetectionLabelMinX = 2.0

	// Labels rotate through LabelLanes heights starting at LaneTopHz,
	// LaneStepHz apart.
	LabelLanes = 4
	LaneTopHz  = 7500.0
	LaneStepHz = 1500.0

	// DetectionWidthInches is the fixed width of per-detection images.
	DetectionWidthInches = 10.0

	maxSessionWidthInches  = 50.0
	baseSessionWidthInches = 10.0
	titleStripHeight       = 20
	timeAxisHeight         = 16
	defaultTopDB           = 80.0
	outputDirPermissions   = 0o755
)

// Options holds the transform and geometry parameters.
type Options struct {
	FFTSize       int
	HopSize       int
	MelBands      int
	MaxFrequency  float64
	TopDB         float64
	PixelsPerInch int
	Height        int
}

// OptionsFromSettings converts configuration into render options.
func OptionsFromSettings(s *conf.SpectrogramSettings) Options {
	return Options{
		FFTSize:       s.FFTSize,
		HopSize:       s.HopSize,
		MelBands:      s.MelBands,
		MaxFrequency:  s.MaxFrequency,
		TopDB:         defaultTopDB,
		PixelsPerInch: s.PixelsPerInch,
		Height:        s.Height,
	}
}

// Highlight is a labelled time window in seconds.
type Highlight struct {
	Start float64
	End   float64
	Label string
}

// Meta carries the recording details shown in the title.
type Meta struct {
	RecordedAt time.Time
	Lat        *float64
	Lon        *float64
}

// Title formats the image title line.
func (m Meta) Title() string {
	return fmt.Sprintf("Recorded: %s | Lat: %s, Lon: %s",
		m.RecordedAt.Format(time.DateTime), formatCoord(m.Lat), formatCoord(m.Lon))
}

func formatCoord(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Generator renders spectrogram images. It holds no per-render state and
// may be used from several goroutines.
type Generator struct {
	opts   Options
	logger logger.Logger
}

// NewGenerator creates a new generator instance.
// If log is nil, the package logger is used.
func NewGenerator(opts Options, log logger.Logger) *Generator {
	if log == nil {
		log = GetLogger()
	}
	if opts.TopDB <= 0 {
		opts.TopDB = defaultTopDB
	}
	return &Generator{opts: opts, logger: log}
}

// RenderSession draws the whole recording with every highlight. Label i
// sits in lane i%LabelLanes at max(midpoint, SessionLabelMinX).
func (g *Generator) RenderSession(ctx context.Context, audioPath, outputPath string, highlights []Highlight, meta Meta) error {
	return g.render(ctx, "session", audioPath, outputPath, meta, func(dur float64) (int, []placedLabel) {
		labels := make([]placedLabel, len(highlights))
		for i, h := range highlights {
			labels[i] = placedLabel{
				Highlight: h,
				X:         LabelX(h.Start, h.End, SessionLabelMinX),
				Hz:        LaneFrequency(i),
			}
		}
		return SessionWidth(dur, g.opts.PixelsPerInch), labels
	})
}

// RenderDetection draws the whole recording with a single highlight,
// labelled at max(midpoint, DetectionLabelMinX) in the top lane.
func (g *Generator) RenderDetection(ctx context.Context, audioPath, outputPath string, h Highlight, meta Meta) error {
	return g.render(ctx, "detection", audioPath, outputPath, meta, func(float64) (int, []placedLabel) {
		width := int(math.Round(DetectionWidthInches * float64(g.opts.PixelsPerInch)))
		return width, []placedLabel{{
			Highlight: h,
			X:         LabelX(h.Start, h.End, DetectionLabelMinX),
			Hz:        LaneTopHz,
		}}
	})
}

type placedLabel struct {
	Highlight
	X  float64 // seconds
	Hz float64
}

type layoutFunc func(duration float64) (width int, labels []placedLabel)

func (g *Generator) render(ctx context.Context, kind, audioPath, outputPath string, meta Meta, layout layoutFunc) error {
	start := time.Now()

	if outputPath == "" {
		return errors.Newf("output path is empty").
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Context("operation", "render_"+kind).
			Build()
	}

	sig, err := myaudio.ReadWAV(audioPath)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	duration := sig.Info.Seconds()
	width, labels := layout(duration)
	spec := MelSpectrogram(sig.Samples, sig.SampleRate, g.opts)

	if err := ctx.Err(); err != nil {
		return err
	}

	img := g.paint(spec, duration, width, labels, meta)
	if err := writePNG(outputPath, img); err != nil {
		return errors.New(err).
			Component("spectrogram").
			Category(errors.CategoryFileIO).
			Context("operation", "render_"+kind).
			Context("output_path", outputPath).
			Build()
	}

	g.logger.Debug("spectrogram rendered",
		logger.String("kind", kind),
		logger.String("audio_path", audioPath),
		logger.String("output_path", outputPath),
		logger.Int("width", width),
		logger.Int("frames", len(spec)),
		logger.Int("labels", len(labels)),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// paint composes the final image: title strip, spectrogram plot, highlights
// and labels, and a seconds axis along the bottom.
func (g *Generator) paint(spec [][]float64, duration float64, width int, labels []placedLabel, meta Meta) *image.RGBA {
	height := g.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	plot := image.Rect(0, titleStripHeight, width, height-timeAxisHeight)
	axis := geometry{plot: plot, duration: duration, maxHz: g.opts.MaxFrequency}

	g.paintHeatmap(img, plot, spec)

	for _, l := range labels {
		x0, x1 := axis.timeToX(l.Start), axis.timeToX(l.End)
		drawHighlight(img, image.Rect(x0, plot.Min.Y, max(x1, x0+1), plot.Max.Y))
	}
	for _, l := range labels {
		drawLabel(img, l.Label, axis.timeToX(l.X), axis.freqToY(l.Hz), plot)
	}

	drawTitle(img, meta.Title(), image.Rect(0, 0, width, titleStripHeight))
	drawTimeAxis(img, axis, image.Rect(0, plot.Max.Y, width, height))
	return img
}

func (g *Generator) paintHeatmap(img *image.RGBA, plot image.Rectangle, spec [][]float64) {
	if len(spec) == 0 || plot.Empty() {
		return
	}
	nFrames := len(spec)
	nMels := len(spec[0])
	topDB := g.opts.TopDB

	for x := plot.Min.X; x < plot.Max.X; x++ {
		frame := spec[min((x-plot.Min.X)*nFrames/plot.Dx(), nFrames-1)]
		for y := plot.Min.Y; y < plot.Max.Y; y++ {
			band := min((plot.Max.Y-1-y)*nMels/plot.Dy(), nMels-1)
			img.SetRGBA(x, y, colorAt((frame[band]+topDB)/topDB))
		}
	}
}

// geometry maps seconds and Hz onto plot pixels. The vertical axis is
// mel-scaled like the heatmap rows.
type geometry struct {
	plot     image.Rectangle
	duration float64
	maxHz    float64
}

func (a geometry) timeToX(t float64) int {
	if a.duration <= 0 {
		return a.plot.Min.X
	}
	frac := min(max(t/a.duration, 0), 1)
	return a.plot.Min.X + int(math.Round(frac*float64(a.plot.Dx())))
}

func (a geometry) freqToY(hz float64) int {
	frac := min(max(hzToMel(hz)/hzToMel(a.maxHz), 0), 1)
	return a.plot.Max.Y - int(math.Round(frac*float64(a.plot.Dy())))
}

func drawTimeAxis(img *image.RGBA, axis geometry, strip image.Rectangle) {
	fill(img, strip, titleFill)
	if axis.duration <= 0 {
		return
	}
	step := tickStep(axis.duration)
	for t := 0.0; t <= axis.duration; t += step {
		label := strconv.FormatFloat(t, 'f', -1, 64)
		x := axis.timeToX(t) - textWidth(label)/2
		x = min(max(x, strip.Min.X), strip.Max.X-textWidth(label))
		drawText(img, label, x, strip.Max.Y-3, titleText)
	}
}

// tickStep picks a whole-second tick spacing giving at most ~12 ticks.
func tickStep(duration float64) float64 {
	for _, s := range []float64{1, 2, 5, 10, 15, 30, 60, 120, 300} {
		if duration/s <= 12 {
			return s
		}
	}
	return 600
}

// SessionWidth returns the session image width in pixels:
// min(50, 10 + duration/10) inches.
func SessionWidth(duration float64, pixelsPerInch int) int {
	inches := min(maxSessionWidthInches, baseSessionWidthInches+max(duration, 0)/10)
	return int(math.Round(inches * float64(pixelsPerInch)))
}

// LabelX returns the label position: the window midpoint, no earlier than minX.
func LabelX(start, end, minX float64) float64 {
	return max(start+(end-start)/2, minX)
}

// LaneFrequency returns the label height in Hz for the i-th detection.
func LaneFrequency(i int) float64 {
	return LaneTopHz - float64(i%LabelLanes)*LaneStepHz
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), outputDirPermissions); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".spectrogram-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
