package detection

import (
	"context"
	"testing"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/observability/metrics"
)

type stubEngine struct {
	output string
	err    error
	calls  int
	last   Request
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Analyze(_ context.Context, req Request) ([]*jason.Object, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return ParseResults([]byte(s.output))
}

func TestAdapter_Detect(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{output: `[
		{"common_name":"American Robin","scientific_name":"Turdus migratorius","start_time":0,"end_time":3,"confidence":0.92},
		{"common_name":"House Sparrow","start_time":3,"end_time":6,"confidence":0.4},
		{"common_name":"American Robin","start_time":6,"end_time":9,"confidence":0.88}
	]`}
	adapter := NewAdapter(engine)

	req := Request{
		AudioPath:     "/tmp/a.wav",
		RecordedAt:    time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC),
		MinConfidence: 0.7,
	}
	got := adapter.Detect(t.Context(), req)

	require.Len(t, got, 2)
	assert.Equal(t, "American Robin", got[0].SpeciesName)
	assert.Equal(t, "Turdus migratorius", got[0].ScientificName)
	assert.InDelta(t, 6.0, got[1].StartTime, 1e-9)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, req, engine.last)
}

func TestAdapter_EngineErrorYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPipelineMetrics(reg)
	require.NoError(t, err)

	engine := &stubEngine{err: errors.Newf("model crashed").
		Component("detection").
		Category(errors.CategoryCommand).
		Build()}
	adapter := NewAdapter(engine, WithMetrics(m))

	got := adapter.Detect(t.Context(), Request{AudioPath: "/tmp/a.wav", MinConfidence: 0.7})
	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.EngineErrorsTotal), 1e-9)
}

func TestAdapter_EmptyOutput(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(&stubEngine{output: `{"detections":[]}`})
	got := adapter.Detect(t.Context(), Request{MinConfidence: 0.7})
	require.NotNil(t, got)
	assert.Empty(t, got)
}
