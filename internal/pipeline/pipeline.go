// Package pipeline turns one uploaded recording into persisted detections.
//
// ProcessUpload runs these steps in order: store the audio, detect, render
// artifacts on the shared worker pool, resolve species metadata once per
// unique name, and commit every record in one batch. Only a failure to
// store the audio is returned as an error. Detection, rendering and
// metadata failures degrade the affected fields and are logged.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

const (
	storageDirPermissions = 0o755
	audioFilePermissions  = 0o644
)

// UploadRequest is one upload as received from the transport.
type UploadRequest struct {
	Audio      io.Reader
	Lat        *float64
	Lon        *float64
	RecordedAt string // RecordedAtLayout; anything else falls back to now
}

// UploadResult summarizes a processed upload.
type UploadResult struct {
	ID             string                `json:"id"`
	BirdsFound     int                   `json:"birds_found"`
	ProcessingTime time.Duration         `json:"processing_time"`
	Detections     []datastore.Detection `json:"detections"`
}

// Resolver resolves species metadata. It returns an error wrapping
// speciesinfo.ErrSpeciesNotFound when nothing is known and
// speciesinfo.ErrSourceUnavailable when the lookup itself failed.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*speciesinfo.Info, error)
}

// RecordStore persists detection records.
type RecordStore interface {
	SaveDetections(ctx context.Context, records []datastore.Detection) error
}

// Config holds the orchestrator settings.
type Config struct {
	StorageDir         string
	URLPrefix          string
	MinConfidence      float64
	ResolveConcurrency int // 1 resolves sequentially
}

// Orchestrator runs the upload pipeline.
type Orchestrator struct {
	cfg         Config
	detector    detection.Detector
	coordinator *Coordinator
	resolver    Resolver
	store       RecordStore
	metrics     *metrics.PipelineMetrics
	logger      logger.Logger
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records upload metrics.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the package logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock replaces time.Now, used for the recorded-at fallback.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// GetLogger returns the pipeline package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(cfg Config, detector detection.Detector, coordinator *Coordinator, resolver Resolver, store RecordStore, opts ...Option) *Orchestrator {
	cfg.ResolveConcurrency = max(cfg.ResolveConcurrency, 1)
	o := &Orchestrator{
		cfg:         cfg,
		detector:    detector,
		coordinator: coordinator,
		resolver:    resolver,
		store:       store,
		logger:      GetLogger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessUpload runs the whole pipeline for one recording. Once the audio
// is stored the upload runs to completion even if ctx is cancelled.
func (o *Orchestrator) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	uc := newUploadContext(o.cfg.StorageDir, o.cfg.URLPrefix)
	uc.Lat, uc.Lon = req.Lat, req.Lon
	log := o.logger.With(logger.String("upload_id", uc.ID))

	size, err := o.storeAudio(uc, req.Audio)
	if err != nil {
		o.metrics.RecordUpload(metrics.StatusError, time.Since(start).Seconds(), 0)
		log.Error("failed to store uploaded audio", logger.Error(err))
		return nil, err
	}
	log.Info("upload stored",
		logger.String("path", uc.Path(uc.SessionAudioName())),
		logger.String("size", humanize.Bytes(uint64(size)))) //nolint:gosec // G115: size is a non-negative byte count

	recordedAt, ok := ParseRecordedAt(req.RecordedAt, o.now())
	if !ok {
		log.Warn("unparseable recorded_at, using current time",
			logger.String("recorded_at", req.RecordedAt))
	}
	uc.RecordedAt = recordedAt

	dets := o.detector.Detect(ctx, detection.Request{
		AudioPath:     uc.Path(uc.SessionAudioName()),
		Lat:           uc.Lat,
		Lon:           uc.Lon,
		RecordedAt:    uc.RecordedAt,
		MinConfidence: o.cfg.MinConfidence,
	})

	artifacts := o.coordinator.Render(ctx, uc, dets)

	names := uniqueSpecies(dets)
	resolved := o.resolveAll(ctx, log, names)

	records := buildRecords(uc, dets, artifacts, resolved)
	if err := o.store.SaveDetections(ctx, records); err != nil {
		log.Error("failed to commit detections",
			logger.Int("records", len(records)),
			logger.Error(err))
	}

	elapsed := time.Since(start)
	o.metrics.RecordUpload(metrics.StatusSuccess, elapsed.Seconds(), len(records))
	log.Info("upload processed",
		logger.Int("birds_found", len(dets)),
		logger.Int("unique_species", len(names)),
		logger.Int("rendered", len(artifacts.Detections)),
		logger.Duration("processing_time", elapsed))

	return &UploadResult{
		ID:             uc.ID,
		BirdsFound:     len(dets),
		ProcessingTime: elapsed,
		Detections:     records,
	}, nil
}

// storeAudio writes the upload to <storage>/<id>.wav.
func (o *Orchestrator) storeAudio(uc *UploadContext, r io.Reader) (int64, error) {
	path := uc.Path(uc.SessionAudioName())
	fail := func(err error) (int64, error) {
		return 0, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			Context("operation", "store_upload").
			Context("path", path).
			Build()
	}

	if r == nil {
		return fail(fmt.Errorf("upload has no audio payload"))
	}
	if err := os.MkdirAll(uc.StorageDir, storageDirPermissions); err != nil {
		return fail(err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, audioFilePermissions)
	if err != nil {
		return fail(err)
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fail(err)
	}
	return n, nil
}
