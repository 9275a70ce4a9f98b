package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/birdnet-ingest/internal/datastore"
	"github.com/tphakala/birdnet-ingest/internal/logger"
	"github.com/tphakala/birdnet-ingest/internal/pipeline"
	"github.com/tphakala/birdnet-ingest/internal/speciesinfo"
)

// Uploader runs one upload through the ingest pipeline.
// *pipeline.Orchestrator satisfies it.
type Uploader interface {
	ProcessUpload(ctx context.Context, req pipeline.UploadRequest) (*pipeline.UploadResult, error)
}

// SpeciesResolver resolves species metadata. *speciesinfo.Cache satisfies it.
type SpeciesResolver interface {
	Resolve(ctx context.Context, name string) (*speciesinfo.Info, error)
}

// Controller holds the dependencies of the JSON API handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Uploader Uploader
	Species  SpeciesResolver
	logger   logger.Logger
}

// NewController registers the upload endpoint on e and the read API under
// /api. log may be nil.
func NewController(e *echo.Echo, ds datastore.Interface, uploader Uploader, species SpeciesResolver, log logger.Logger) *Controller {
	if log == nil {
		log = GetLogger()
	}
	c := &Controller{
		Echo:     e,
		Group:    e.Group("/api"),
		DS:       ds,
		Uploader: uploader,
		Species:  species,
		logger:   log,
	}
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Echo.POST("/upload", c.Upload)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"detection routes", c.initDetectionRoutes},
		{"species routes", c.initSpeciesRoutes},
		{"analytics routes", c.initAnalyticsRoutes},
	}
	for _, initializer := range routeInitializers {
		initializer.fn()
		c.logger.Debug("routes initialized", logger.String("group", initializer.name))
	}
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: newCorrelationID(),
	}
}

func newCorrelationID() string {
	return uuid.NewString()[:8]
}

// HandleError logs err with a correlation ID and writes it as JSON. Server
// side failures log at error level, client mistakes at debug.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("ip", ctx.RealIP()),
		logger.Int("code", code),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error(message, fields...)
	} else {
		c.logger.Debug(message, fields...)
	}

	return ctx.JSON(code, resp)
}
