package pipeline

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/detection"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
	"github.com/tphakala/birdnet-ingest/internal/spectrogram"
	"github.com/tphakala/birdnet-ingest/internal/workerpool"
)

type fixedDetector struct {
	dets []detection.Detection
	mu   sync.Mutex
	reqs []detection.Request
}

func (f *fixedDetector) Detect(_ context.Context, req detection.Request) []detection.Detection {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.dets
}

// stubRenderer fails per-detection renders whose label is in failLabels
// and panics on panicLabel.
type stubRenderer struct {
	mu         sync.Mutex
	failLabels []string
	panicLabel string
	sessions   [][]spectrogram.Highlight
	singles    map[string]spectrogram.Highlight
}

func (r *stubRenderer) RenderSession(_ context.Context, _, _ string, hs []spectrogram.Highlight, _ spectrogram.Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, hs)
	return nil
}

func (r *stubRenderer) RenderDetection(_ context.Context, _, outputPath string, h spectrogram.Highlight, _ spectrogram.Meta) error {
	r.mu.Lock()
	if r.singles == nil {
		r.singles = make(map[string]spectrogram.Highlight)
	}
	r.singles[outputPath] = h
	r.mu.Unlock()

	if r.panicLabel != "" && h.Label == r.panicLabel {
		panic("renderer crashed")
	}
	if slices.Contains(r.failLabels, h.Label) {
		return fmt.Errorf("render failed for %s", h.Label)
	}
	return nil
}

type trimCall struct {
	dst          string
	start, endMs int64
}

type stubTrimmer struct {
	mu    sync.Mutex
	calls []trimCall
	err   error
}

func (s *stubTrimmer) trim(_, dst string, startMs, endMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, trimCall{dst: dst, start: startMs, endMs: endMs})
	return s.err
}

type countingResolver struct {
	mu    sync.Mutex
	calls map[string]int
	known map[string]*speciesinfo.Info
	err   error
}

func (r *countingResolver) Resolve(_ context.Context, name string) (*speciesinfo.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[name]++
	if r.err != nil {
		return nil, r.err
	}
	if info, ok := r.known[name]; ok {
		return info, nil
	}
	return nil, speciesinfo.ErrSpeciesNotFound
}

func (r *countingResolver) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

type recordingStore struct {
	mu      sync.Mutex
	batches [][]datastore.Detection
	err     error
}

func (s *recordingStore) SaveDetections(_ context.Context, records []datastore.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, records)
	return s.err
}

func newPool(t *testing.T) *workerpool.Pool {
	t.Helper()
	p := workerpool.New(4)
	p.Start()
	t.Cleanup(p.Stop)
	return p
}

type harness struct {
	detector *fixedDetector
	renderer *stubRenderer
	trimmer  *stubTrimmer
	resolver *countingResolver
	store    *recordingStore
	orch     *Orchestrator
	dir      string
}

func newHarness(t *testing.T, dets []detection.Detection) *harness {
	t.Helper()
	h := &harness{
		detector: &fixedDetector{dets: dets},
		renderer: &stubRenderer{},
		trimmer:  &stubTrimmer{},
		resolver: &countingResolver{},
		store:    &recordingStore{},
		dir:      t.TempDir(),
	}
	coord := NewCoordinator(newPool(t), h.renderer, h.trimmer.trim, nil, nil)
	h.orch = NewOrchestrator(Config{
		StorageDir:         h.dir,
		URLPrefix:          "/storage",
		MinConfidence:      0.7,
		ResolveConcurrency: 1,
	}, h.detector, coord, h.resolver, h.store)
	return h
}

func (h *harness) onlyBatch(t *testing.T) []datastore.Detection {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	require.Len(t, h.store.batches, 1, "records must be committed in exactly one batch")
	return h.store.batches[0]
}

func det(name string, start, end, conf float64) detection.Detection {
	return detection.Detection{SpeciesName: name, StartTime: start, EndTime: end, Confidence: conf}
}

func ptr[T any](v T) *T { return &v }
