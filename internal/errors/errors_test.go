package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) IsEnabled() bool { return true }

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func TestBuildDefaults(t *testing.T) {
	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderCarriesContext(t *testing.T) {
	base := fmt.Errorf("dial tcp: timeout")
	ee := New(base).
		Component("speciesinfo").
		Category(CategoryNetwork).
		Priority(PriorityLow).
		Context("species", "Robin").
		Build()

	assert.Equal(t, "speciesinfo", ee.Component)
	assert.Equal(t, CategoryNetwork, ee.Category)
	assert.Equal(t, PriorityLow, ee.Priority)
	assert.Equal(t, "Robin", ee.GetContext()["species"])
	require.ErrorIs(t, ee, base)
	assert.True(t, IsCategory(fmt.Errorf("wrapped: %w", ee), CategoryNetwork))
}

func TestInvalidPriorityFallsBackToMedium(t *testing.T) {
	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestIsNotFound(t *testing.T) {
	nf := Newf("species %q not found", "Dodo").Category(CategoryNotFound).Build()
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsNotFound(NewStd("plain")))
}

func TestTelemetryReporterReceivesErrors(t *testing.T) {
	rec := &recordingReporter{}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("disk full")).Category(CategoryFileIO).Build()

	require.Len(t, rec.reported, 1)
	assert.Same(t, ee, rec.reported[0])
	assert.True(t, ee.IsReported())
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	got := scrubMessage("GET https://en.wikipedia.org/w/api.php?titles=Robin failed")
	assert.Equal(t, "GET https://en.wikipedia.org/w/api.php?[REDACTED] failed", got)

	got = scrubMessage("config error: api_key=secret123 is invalid")
	assert.NotContains(t, got, "secret123")
}

func TestErrorTitle(t *testing.T) {
	t.Parallel()

	ee := &EnhancedError{
		Err:       NewStd("x"),
		Component: "speciesinfo",
		Category:  CategoryImageFetch,
		Context:   map[string]any{"operation": "wikipedia_lookup"},
	}
	assert.Equal(t, "Speciesinfo Image Fetch Wikipedia Lookup", errorTitle(ee))
}
