package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/pipeline"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

type stubUploader struct {
	mu     sync.Mutex
	calls  []pipeline.UploadRequest
	bodies [][]byte
	result *pipeline.UploadResult
	err    error
}

func (s *stubUploader) ProcessUpload(_ context.Context, req pipeline.UploadRequest) (*pipeline.UploadResult, error) {
	data, _ := io.ReadAll(req.Audio)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	s.bodies = append(s.bodies, data)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubResolver map[string]*speciesinfo.Info

func (s stubResolver) Resolve(_ context.Context, name string) (*speciesinfo.Info, error) {
	if info, ok := s[name]; ok {
		return info, nil
	}
	return nil, speciesinfo.ErrSpeciesNotFound
}

type wrapResolver struct{ err error }

func (w wrapResolver) Resolve(context.Context, string) (*speciesinfo.Info, error) {
	return nil, w.err
}

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

// setupTestEnvironment wires a controller on a fresh echo instance.
func setupTestEnvironment(t *testing.T, ds datastore.Interface, up Uploader, res SpeciesResolver) (*echo.Echo, *Controller) {
	t.Helper()
	e := echo.New()
	c := NewController(e, ds, up, res, discardLogger())
	return e, c
}

func createDatabase(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.Type = conf.DatabaseSQLite
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "api.db")

	store := datastore.New(settings)
	require.NoError(t, store.Open())
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, ds datastore.Interface) {
	t.Helper()
	base := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	records := []datastore.Detection{
		{Timestamp: base, Species: "American Robin", Confidence: 0.91, Lat: ptr(51.5), Lon: ptr(-0.12)},
		{Timestamp: base.Add(10 * time.Minute), Species: "American Robin", Confidence: 0.81},
		{Timestamp: base.Add(2 * time.Hour), Species: "Blue Jay", Confidence: 0.74},
	}
	require.NoError(t, ds.SaveDetections(context.Background(), records))
}

func doRequest(e *echo.Echo, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// uploadForm builds a multipart body. An empty audio slice omits the file
// part entirely.
func uploadForm(t *testing.T, audio []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if len(audio) > 0 {
		part, err := w.CreateFormFile("file", "recording.wav")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	return doRequest(e, http.MethodGet, target, http.NoBody, "")
}
