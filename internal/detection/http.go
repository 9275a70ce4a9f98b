package detection

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/birdnet-ingest/internal/errors"
	"github.com/tphakala/birdnet-ingest/internal/httpclient"
)

const maxClassifierResponse = 8 << 20

// HTTPEngine posts the audio to a classifier service as multipart form data.
// Form fields: file, lat, lon, date, week, min_conf.
type HTTPEngine struct {
	URL     string
	Timeout time.Duration
	Client  *httpclient.Client
}

func (e *HTTPEngine) Name() string { return "http" }

// Analyze uploads the audio and parses the JSON response.
func (e *HTTPEngine) Analyze(ctx context.Context, req Request) ([]*jason.Object, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	body, contentType, err := buildMultipart(req)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryFileIO).
			Context("audio_path", req.AudioPath).
			Build()
	}

	resp, err := e.Client.Post(ctx, e.URL, contentType, body)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryNetwork).
			Context("url", e.URL).
			Build()
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClassifierResponse))
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryNetwork).
			Context("url", e.URL).
			Build()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("classifier returned status %d: %s", resp.StatusCode, tail(string(data))).
			Component("detection").
			Category(errors.CategoryHTTP).
			Context("url", e.URL).
			Context("status_code", resp.StatusCode).
			Build()
	}

	results, err := ParseResults(data)
	if err != nil {
		return nil, errors.New(err).
			Component("detection").
			Category(errors.CategoryAudioAnalysis).
			Context("url", e.URL).
			Build()
	}
	return results, nil
}

func buildMultipart(req Request) (io.Reader, string, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio into request: %w", err)
	}

	fields := map[string]string{
		"lat":      formatCoord(req.Lat),
		"lon":      formatCoord(req.Lon),
		"date":     req.RecordedAt.Format(time.DateOnly),
		"week":     strconv.Itoa(BirdNETWeek(req.RecordedAt)),
		"min_conf": strconv.FormatFloat(req.MinConfidence, 'f', -1, 64),
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
