// Package metrics provides the Prometheus collectors used by birdnet-ingest.
// Every Record method is safe to call on a nil receiver so components can run
// without metrics wired in.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Render unit kinds.
const (
	UnitSession   = "session"
	UnitDetection = "detection"
)

// PipelineMetrics covers upload processing and artifact rendering.
type PipelineMetrics struct {
	UploadsTotal      *prometheus.CounterVec
	UploadDuration    prometheus.Histogram
	DetectionsTotal   prometheus.Counter
	RenderUnitsTotal  *prometheus.CounterVec
	RenderDuration    *prometheus.HistogramVec
	EngineErrorsTotal prometheus.Counter
}

// NewPipelineMetrics creates the collectors and registers them.
func NewPipelineMetrics(registry prometheus.Registerer) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.UploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birdnet_ingest_uploads_total",
		Help: "Total number of processed uploads by outcome.",
	}, []string{"status"})

	m.UploadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "birdnet_ingest_upload_duration_seconds",
		Help:    "End to end upload processing time in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	m.DetectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdnet_ingest_detections_total",
		Help: "Total number of detections persisted.",
	})

	m.RenderUnitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "birdnet_ingest_render_units_total",
		Help: "Total number of artifact render units by kind and outcome.",
	}, []string{"kind", "status"})

	m.RenderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "birdnet_ingest_render_duration_seconds",
		Help:    "Duration of artifact render units in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"kind"})

	m.EngineErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "birdnet_ingest_engine_errors_total",
		Help: "Total number of detection engine failures.",
	})
}

// RecordUpload records one finished upload.
func (m *PipelineMetrics) RecordUpload(status string, seconds float64, detections int) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.UploadDuration.Observe(seconds)
		m.DetectionsTotal.Add(float64(detections))
	}
}

// RecordRenderUnit records one finished render unit.
func (m *PipelineMetrics) RecordRenderUnit(kind, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RenderUnitsTotal.WithLabelValues(kind, status).Inc()
	m.RenderDuration.WithLabelValues(kind).Observe(seconds)
}

// RecordEngineError counts a contained detection engine failure.
func (m *PipelineMetrics) RecordEngineError() {
	if m == nil {
		return
	}
	m.EngineErrorsTotal.Inc()
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.UploadsTotal.Describe(ch)
	ch <- m.UploadDuration.Desc()
	ch <- m.DetectionsTotal.Desc()
	m.RenderUnitsTotal.Describe(ch)
	m.RenderDuration.Describe(ch)
	ch <- m.EngineErrorsTotal.Desc()
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.UploadsTotal.Collect(ch)
	ch <- m.UploadDuration
	ch <- m.DetectionsTotal
	m.RenderUnitsTotal.Collect(ch)
	m.RenderDuration.Collect(ch)
	ch <- m.EngineErrorsTotal
}
