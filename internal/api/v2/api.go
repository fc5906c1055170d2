// Package api implements the /api/v2 JSON endpoints for species resolution
// and photo identification.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/wildlife-go/internal/conf"
	"github.com/tphakala/wildlife-go/internal/errors"
	"github.com/tphakala/wildlife-go/internal/identify"
	"github.com/tphakala/wildlife-go/internal/logger"
	"github.com/tphakala/wildlife-go/internal/species"
	"github.com/tphakala/wildlife-go/internal/vision"
)

// GetLogger returns the api logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// SpeciesResolver is the species resolution service. *species.Service implements it.
type SpeciesResolver interface {
	Find(ctx context.Context, query string, limit int) ([]species.Entry, error)
	Search(ctx context.Context, query string, limit int) ([]species.Entry, error)
	GetByID(ctx context.Context, id uint) (*species.Entry, error)
	ByClass(ctx context.Context, name string, limit int) ([]species.Entry, error)
	ByOrder(ctx context.Context, name string, limit int) ([]species.Entry, error)
	ByFamily(ctx context.Context, name string, limit int) ([]species.Entry, error)
	Popular(ctx context.Context, limit int) ([]species.Entry, error)
	Count(ctx context.Context) (int64, error)
	ImportByTaxonID(ctx context.Context, taxonID int64) (*species.Entry, error)
	ImportTop(ctx context.Context, result vision.Result) vision.Result
}

// Identifier scores photographs. *identify.Service implements it.
type Identifier interface {
	Identify(ctx context.Context, req identify.Request) vision.Result
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo       *echo.Echo
	Group      *echo.Group
	Settings   *conf.Settings
	Species    SpeciesResolver
	Identifier Identifier

	version   string
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(c *Controller) {
		c.version = version
	}
}

// New creates the controller and registers its routes under /api/v2.
func New(e *echo.Echo, settings *conf.Settings, resolver SpeciesResolver, identifier Identifier, opts ...Option) *Controller {
	c := &Controller{
		Echo:       e,
		Group:      e.Group("/api/v2"),
		Settings:   settings,
		Species:    resolver,
		Identifier: identifier,
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initSpeciesRoutes()
	c.initIdentifyRoutes()

	GetLogger().Debug("api v2 routes registered", logger.Int("routes", len(c.Echo.Routes())))
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = logger.RedactSensitiveData(err.Error())
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString(),
	}
}

// HandleError logs err and writes an ErrorResponse with the given status.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := GetLogger().WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("api error", fields...)
	} else {
		log.Debug("api error", fields...)
	}

	return ctx.JSON(code, resp)
}

// statusForError maps an error category to an HTTP status.
func statusForError(err error) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryIntegration, errors.CategoryNetwork:
		return http.StatusBadGateway
	case errors.CategoryTimeout:
		return http.StatusGatewayTimeout
	case errors.CategoryCancellation:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// validationError builds a validation error for a bad request parameter.
func validationError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// parseLimit reads the limit query parameter and clamps it to limits.
func parseLimit(ctx echo.Context, limits conf.LimitSettings) (int, error) {
	raw := ctx.QueryParam("limit")
	if raw == "" {
		return limits.Clamp(0), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, validationError("limit must be a positive integer, got %q", raw)
	}
	return limits.Clamp(n), nil
}
