package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/logger"
)

const exportFilename = "detections.csv"

func (c *Controller) initDetectionRoutes() {
	detectionGroup := c.Group.Group("/detections")
	detectionGroup.GET("", c.GetDetections)
	detectionGroup.GET("/export", c.ExportDetections)
}

// GetDetections handles GET /api/detections, newest first.
// Query: limit, offset, species.
func (c *Controller) GetDetections(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
	}
	offset, err := intQueryParam(ctx, "offset", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid offset parameter", http.StatusBadRequest)
	}

	detections, err := c.DS.ListDetections(ctx.Request().Context(), datastore.ListOptions{
		Species: ctx.QueryParam("species"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list detections", http.StatusInternalServerError)
	}
	if detections == nil {
		detections = []datastore.Detection{}
	}
	return ctx.JSON(http.StatusOK, detections)
}

// ExportDetections streams every detection as a CSV attachment.
func (c *Controller) ExportDetections(ctx echo.Context) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+exportFilename+`"`)
	res.WriteHeader(http.StatusOK)

	n, err := datastore.ExportCSV(ctx.Request().Context(), c.DS, res)
	if err != nil {
		// Headers are already sent; the truncated body is all the client gets.
		c.logger.Error("detection export failed",
			logger.Int("rows_written", n),
			logger.Error(err))
		return nil
	}
	c.logger.Debug("detections exported", logger.Int("rows", n))
	return nil
}

func intQueryParam(ctx echo.Context, name string, def int) (int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
