package detection

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/birdnet-ingest/internal/conf"
	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
)

const classifierURL = "http://classifier.local/analyze"

func newMockedHTTPEngine(t *testing.T) (*HTTPEngine, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{Transport: transport})
	t.Cleanup(client.Close)
	return &HTTPEngine{URL: classifierURL, Client: client}, transport
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake"), 0o600))
	return path
}

func TestHTTPEngine_Analyze(t *testing.T) {
	t.Parallel()

	engine, transport := newMockedHTTPEngine(t)
	lat := 45.5
	var gotFields map[string]string
	var gotFile []byte

	transport.RegisterResponder(http.MethodPost, classifierURL,
		func(req *http.Request) (*http.Response, error) {
			if err := req.ParseMultipartForm(1 << 20); err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			gotFields = map[string]string{}
			for k, v := range req.MultipartForm.Value {
				gotFields[k] = v[0]
			}
			f, _, err := req.FormFile("file")
			if err != nil {
				return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
			}
			defer f.Close()
			gotFile, _ = io.ReadAll(f)
			return httpmock.NewStringResponse(http.StatusOK,
				`{"detections":[{"label":"Blue Jay","confidence":0.81,"start_time":1,"end_time":4}]}`), nil
		})

	raw, err := engine.Analyze(t.Context(), Request{
		AudioPath:     writeAudio(t),
		Lat:           &lat,
		RecordedAt:    time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC),
		MinConfidence: 0.7,
	})
	require.NoError(t, err)
	require.Len(t, raw, 1)

	assert.Equal(t, []byte("RIFFfake"), gotFile)
	assert.Equal(t, "45.5", gotFields["lat"])
	assert.NotContains(t, gotFields, "lon")
	assert.Equal(t, "2024-07-04", gotFields["date"])
	assert.Equal(t, "0.7", gotFields["min_conf"])
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestHTTPEngine_StatusError(t *testing.T) {
	t.Parallel()

	engine, transport := newMockedHTTPEngine(t)
	transport.RegisterResponder(http.MethodPost, classifierURL,
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "model loading"))

	_, err := engine.Analyze(t.Context(), Request{AudioPath: writeAudio(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPEngine_NetworkError(t *testing.T) {
	t.Parallel()

	engine, transport := newMockedHTTPEngine(t)
	transport.RegisterResponder(http.MethodPost, classifierURL,
		httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	_, err := engine.Analyze(t.Context(), Request{AudioPath: writeAudio(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestHTTPEngine_MissingAudio(t *testing.T) {
	t.Parallel()

	engine, transport := newMockedHTTPEngine(t)
	_, err := engine.Analyze(t.Context(), Request{AudioPath: filepath.Join(t.TempDir(), "missing.wav")})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestClientConfig(t *testing.T) {
	t.Parallel()

	cfg := ClientConfig(&conf.DetectionHTTPSettings{Timeout: 5 * time.Minute})
	assert.Equal(t, 5*time.Minute, cfg.ResponseHeaderTimeout)
	assert.Equal(t, 5*time.Minute, cfg.DefaultTimeout)

	cfg = ClientConfig(&conf.DetectionHTTPSettings{})
	assert.Equal(t, httpclient.DefaultConfig().ResponseHeaderTimeout, cfg.ResponseHeaderTimeout)
}

func TestHTTPEngine_SlowClassifier(t *testing.T) {
	if testing.Short() {
		t.Skip("waits past the default response header timeout")
	}
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		time.Sleep(11 * time.Second)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"label":"Blue Jay","confidence":0.9,"start_time":1,"end_time":3}]`)
	}))
	t.Cleanup(srv.Close)

	settings := &conf.DetectionSettings{
		Engine: conf.EngineHTTP,
		HTTP:   conf.DetectionHTTPSettings{URL: srv.URL, Timeout: time.Minute},
	}
	engine, err := NewEngine(settings, nil)
	require.NoError(t, err)

	raw, err := engine.Analyze(t.Context(), Request{AudioPath: writeAudio(t)})
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}
