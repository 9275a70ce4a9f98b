package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/pipeline"
)

// UploadResponse is returned for an accepted upload.
type UploadResponse struct {
	Status         string `json:"status"`
	ID             string `json:"id"`
	BirdsFound     int    `json:"birds_found"`
	ProcessingTime string `json:"processing_time"`
}

// Upload handles POST /upload. Form fields: file (required), lat, lon and
// recorded_at ("YYYY-MM-DD HH:MM:SS", server local time).
func (c *Controller) Upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Missing audio file", http.StatusBadRequest)
	}

	lat, err := parseCoordinate(ctx.FormValue("lat"), 90)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid latitude", http.StatusBadRequest)
	}
	lon, err := parseCoordinate(ctx.FormValue("lon"), 180)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid longitude", http.StatusBadRequest)
	}

	f, err := fh.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read audio file", http.StatusBadRequest)
	}
	defer f.Close()

	result, err := c.Uploader.ProcessUpload(ctx.Request().Context(), pipeline.UploadRequest{
		Audio:      f,
		Lat:        lat,
		Lon:        lon,
		RecordedAt: strings.TrimSpace(ctx.FormValue("recorded_at")),
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to store upload", http.StatusInternalServerError)
	}

	c.logger.Info("upload accepted",
		logger.String("upload_id", result.ID),
		logger.String("filename", fh.Filename),
		logger.Int("birds_found", result.BirdsFound))

	return ctx.JSON(http.StatusOK, UploadResponse{
		Status:         "success",
		ID:             result.ID,
		BirdsFound:     result.BirdsFound,
		ProcessingTime: result.ProcessingTime.Round(time.Millisecond).String(),
	})
}

// parseCoordinate parses an optional form coordinate. An empty value is
// nil; anything else must be a finite number within ±limit.
func parseCoordinate(s string, limit float64) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return nil, fmt.Errorf("out of range: %v", v)
	}
	return &v, nil
}
