package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
	"github.com/tphakala/birdnet-ingest/internal/spectrogram"
	"github.com/tphakala/birdnet-ingest/internal/workerpool"
)

// Renderer draws spectrogram images.
type Renderer interface {
	RenderSession(ctx context.Context, audioPath, outputPath string, highlights []spectrogram.Highlight, meta spectrogram.Meta) error
	RenderDetection(ctx context.Context, audioPath, outputPath string, h spectrogram.Highlight, meta spectrogram.Meta) error
}

// ClipTrimmer cuts [startMs, endMs) of src into dst.
type ClipTrimmer func(src, dst string, startMs, endMs int64) error

// Submitter accepts work for a bounded pool.
type Submitter interface {
	Submit(ctx context.Context, task workerpool.Task) error
}

// ArtifactResult holds the files written for one detection.
type ArtifactResult struct {
	Index     int
	ImagePath string
	ClipPath  string
}

// Artifacts is the outcome of one render fan-out. Detections holds only
// the units that succeeded, keyed by detection index.
type Artifacts struct {
	SessionImage string // empty when the session render failed
	Detections   map[int]ArtifactResult
}

// Coordinator fans rendering out to the shared pool and waits for every
// unit. A failed unit is logged and left out of the result.
type Coordinator struct {
	pool     Submitter
	renderer Renderer
	trim     ClipTrimmer
	metrics  *metrics.PipelineMetrics
	logger   logger.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(pool Submitter, renderer Renderer, trim ClipTrimmer, m *metrics.PipelineMetrics, log logger.Logger) *Coordinator {
	if log == nil {
		log = GetLogger()
	}
	return &Coordinator{pool: pool, renderer: renderer, trim: trim, metrics: m, logger: log}
}

// Render submits the session unit and one unit per detection, then blocks
// until all of them have finished.
func (c *Coordinator) Render(ctx context.Context, uc *UploadContext, dets []detection.Detection) *Artifacts {
	out := &Artifacts{Detections: make(map[int]ArtifactResult, len(dets))}
	meta := spectrogram.Meta{RecordedAt: uc.RecordedAt, Lat: uc.Lat, Lon: uc.Lon}
	audioPath := uc.Path(uc.SessionAudioName())
	log := c.logger.With(logger.String("upload_id", uc.ID))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	highlights := make([]spectrogram.Highlight, len(dets))
	for i, d := range dets {
		highlights[i] = highlightFor(d)
	}

	c.submit(ctx, &wg, log, metrics.UnitSession, -1, func(taskCtx context.Context) error {
		imagePath := uc.Path(uc.SessionImageName())
		if err := c.renderer.RenderSession(taskCtx, audioPath, imagePath, highlights, meta); err != nil {
			return err
		}
		mu.Lock()
		out.SessionImage = imagePath
		mu.Unlock()
		return nil
	})

	for i, d := range dets {
		c.submit(ctx, &wg, log, metrics.UnitDetection, i, func(taskCtx context.Context) error {
			res := ArtifactResult{
				Index:     i,
				ImagePath: uc.Path(uc.DetectionImageName(i)),
				ClipPath:  uc.Path(uc.DetectionAudioName(i)),
			}
			if err := c.renderer.RenderDetection(taskCtx, audioPath, res.ImagePath, highlights[i], meta); err != nil {
				return err
			}
			if err := c.trim(audioPath, res.ClipPath, secondsToMillis(d.StartTime), secondsToMillis(d.EndTime)); err != nil {
				return err
			}
			mu.Lock()
			out.Detections[i] = res
			mu.Unlock()
			return nil
		})
	}

	wg.Wait()

	log.Info("artifact rendering finished",
		logger.Int("detections", len(dets)),
		logger.Int("succeeded", len(out.Detections)),
		logger.Bool("session_image", out.SessionImage != ""))
	return out
}

// submit schedules one unit. Submission failures count as unit failures.
func (c *Coordinator) submit(ctx context.Context, wg *sync.WaitGroup, log logger.Logger, kind string, index int, unit func(context.Context) error) {
	wg.Add(1)
	task := func(taskCtx context.Context) {
		defer wg.Done()
		start := time.Now()

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Newf("render unit panicked: %v", r).
						Component("pipeline").
						Category(errors.CategoryWorker).
						Build()
				}
			}()
			err = unit(taskCtx)
		}()

		c.finish(log, kind, index, start, err)
	}

	if err := c.pool.Submit(ctx, task); err != nil {
		wg.Done()
		c.finish(log, kind, index, time.Now(), err)
	}
}

func (c *Coordinator) finish(log logger.Logger, kind string, index int, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRenderUnit(kind, metrics.StatusError, elapsed.Seconds())
		log.Warn("render unit failed",
			logger.String("unit", kind),
			logger.Int("detection_index", index),
			logger.Error(err),
			logger.Duration("duration", elapsed))
		return
	}
	c.metrics.RecordRenderUnit(kind, metrics.StatusSuccess, elapsed.Seconds())
}

func highlightFor(d detection.Detection) spectrogram.Highlight {
	return spectrogram.Highlight{Start: d.StartTime, End: d.EndTime, Label: d.SpeciesName}
}

func secondsToMillis(s float64) int64 {
	return int64(s*1000 + 0.5)
}
