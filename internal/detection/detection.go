// Package detection runs an external bird sound classifier and normalizes
// its output into fixed-shape Detection values.
//
// Engines return the classifier's raw JSON objects. The Adapter is the only
// place that interprets them: it maps field names, clamps values, drops
// entries below the confidence threshold and contains every engine failure,
// so callers always receive a (possibly empty) slice.
package detection

import (
	"context"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
)

// Detection is one classified acoustic event. EndTime >= StartTime and
// Confidence is within [0, 1].
type Detection struct {
	StartTime      float64 `json:"start_time"` // seconds from recording start
	EndTime        float64 `json:"end_time"`
	SpeciesName    string  `json:"species_name"`
	ScientificName string  `json:"scientific_name,omitempty"`
	Confidence     float64 `json:"confidence"`
}

// Duration returns the window length.
func (d Detection) Duration() time.Duration {
	return time.Duration((d.EndTime - d.StartTime) * float64(time.Second))
}

// Request describes one classification call.
type Request struct {
	AudioPath     string
	Lat           *float64
	Lon           *float64
	RecordedAt    time.Time
	MinConfidence float64
}

// Engine runs a classifier and returns its raw result objects.
type Engine interface {
	Name() string
	Analyze(ctx context.Context, req Request) ([]*jason.Object, error)
}

// Detector is the interface consumed by the upload pipeline.
type Detector interface {
	Detect(ctx context.Context, req Request) []Detection
}

// Adapter wraps an Engine with normalization and failure containment.
type Adapter struct {
	engine  Engine
	logger  logger.Logger
	metrics *metrics.PipelineMetrics
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMetrics counts contained engine failures.
func WithMetrics(m *metrics.PipelineMetrics) AdapterOption {
	return func(a *Adapter) { a.metrics = m }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// GetLogger returns the package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("detection")
}

// NewAdapter creates an Adapter around engine.
func NewAdapter(engine Engine, opts ...AdapterOption) *Adapter {
	a := &Adapter{engine: engine, logger: GetLogger()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detect classifies the audio at req.AudioPath. Engine errors are logged and
// yield an empty slice; Detect never fails.
func (a *Adapter) Detect(ctx context.Context, req Request) []Detection {
	start := time.Now()
	log := a.logger.With(
		logger.String("engine", a.engine.Name()),
		logger.String("audio_path", req.AudioPath))

	raw, err := a.engine.Analyze(ctx, req)
	if err != nil {
		a.metrics.RecordEngineError()
		log.Error("detection engine failed, continuing with no detections",
			logger.Error(err),
			logger.Duration("duration", time.Since(start)))
		return []Detection{}
	}

	detections := Normalize(raw, req.MinConfidence)
	log.Info("detection completed",
		logger.Int("raw_results", len(raw)),
		logger.Int("detections", len(detections)),
		logger.Duration("duration", time.Since(start)))
	return detections
}
