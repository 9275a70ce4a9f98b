package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
)

// initAnalyticsRoutes registers all analytics-related API endpoints
func (c *Controller) initAnalyticsRoutes() {
	analyticsGroup := c.Group.Group("/analytics")

	analyticsGroup.GET("/summary", c.GetSummary)
	analyticsGroup.GET("/species-distribution", c.GetSpeciesDistribution)
	analyticsGroup.GET("/trends", c.GetTrends)
	analyticsGroup.GET("/hourly-activity", c.GetHourlyActivity)
	analyticsGroup.GET("/confidence-distribution", c.GetConfidenceDistribution)
}

// GetSummary returns totals, unique species, average confidence and the
// most recent detection.
func (c *Controller) GetSummary(ctx echo.Context) error {
	summary, err := c.DS.Summary(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get summary", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, summary)
}

// GetSpeciesDistribution returns detection counts per species. Query: limit
// (0 for all).
func (c *Controller) GetSpeciesDistribution(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid limit parameter", http.StatusBadRequest)
	}
	dist, err := c.DS.SpeciesDistribution(ctx.Request().Context(), limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get species distribution", http.StatusInternalServerError)
	}
	if dist == nil {
		dist = []datastore.SpeciesCount{}
	}
	return ctx.JSON(http.StatusOK, dist)
}

// GetTrends buckets detections over time. Query: period (hour, day, week,
// month; default day) and days (look-back window, 0 for all).
func (c *Controller) GetTrends(ctx echo.Context) error {
	days, err := intQueryParam(ctx, "days", 0)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid days parameter", http.StatusBadRequest)
	}
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}

	period := datastore.ParseTrendPeriod(ctx.QueryParam("period"))
	trends, err := c.DS.Trends(ctx.Request().Context(), period, since)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get trends", http.StatusInternalServerError)
	}
	if trends == nil {
		trends = []datastore.TrendPoint{}
	}
	return ctx.JSON(http.StatusOK, trends)
}

// GetHourlyActivity returns 24 hour-of-day buckets.
func (c *Controller) GetHourlyActivity(ctx echo.Context) error {
	hourly, err := c.DS.HourlyActivity(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get hourly activity", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, hourly)
}

func (c *Controller) GetConfidenceDistribution(ctx echo.Context) error {
	buckets, err := c.DS.ConfidenceDistribution(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get confidence distribution", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, buckets)
}
