// Package api exposes the HTTP surface of the tool checking service.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/dashboard"
	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
	"github.com/toolkitvision/toolcheck-go/internal/logging"
	"github.com/toolkitvision/toolcheck-go/internal/observability"
	"github.com/toolkitvision/toolcheck-go/internal/security"
	"github.com/toolkitvision/toolcheck-go/internal/session"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Sessions  *session.Manager
	Backend   detection.Backend
	Auth      *security.AuthService
	Dashboard *dashboard.Builder

	apiLogger *slog.Logger
	metrics   *observability.Metrics
	startTime time.Time
}

// New creates the API controller and registers all routes under /api/v1.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	sessions *session.Manager, backend detection.Backend,
	auth *security.AuthService, metrics *observability.Metrics) *Controller {

	apiLogger := logging.ForService("api")
	if apiLogger == nil {
		apiLogger = slog.Default().With("service", "api")
	}

	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v1"),
		DS:        ds,
		Settings:  settings,
		Sessions:  sessions,
		Backend:   backend,
		Auth:      auth,
		Dashboard: dashboard.NewBuilder(ds),
		apiLogger: apiLogger,
		metrics:   metrics,
		startTime: time.Now(),
	}

	e.Use(middleware.Recover())
	if len(settings.WebServer.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: settings.WebServer.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}))
	}

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/tools", c.ListTools)
	c.Group.GET("/detector", c.DescribeDetector)

	c.initAuthRoutes()
	c.initSessionRoutes()
	c.initAdminRoutes()

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck reports service and database health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"backend":   c.Backend.Describe().Backend,
	}

	dbStatus := "connected"
	if _, err := c.DS.CountSessions(""); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the JSON error envelope of the API.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an error envelope with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an error response, picking the
// HTTP status from the error category when the caller passes zero.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if code == 0 {
		code = statusForError(err)
	}
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}

// statusForError maps error categories to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryAuth):
		return http.StatusUnauthorized
	case errors.IsCategory(err, errors.CategoryNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
