package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/vision-speech-service/internal/config"
	"github.com/book-expert/vision-speech-service/internal/metrics"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Routes.
const (
	RouteVisionToSpeech      = "/api/VisionToSpeech"
	RouteVisionToSpeechKebab = "/api/vision-to-speech"
	RouteHealth              = "/healthz"
	RouteMetrics             = "/metrics"
)

const functionKeyLookup = "header:x-functions-key,query:code"

// NewServer builds the echo instance with middleware and routes.
func NewServer(
	h *Handler,
	serviceMetrics *metrics.Metrics,
	log *logger.Logger,
	cfg config.ServerConfig,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, values middleware.RequestLoggerValues) error {
			log.Info("%s %s -> %d in %s (request %s)",
				values.Method, values.URI, values.Status, values.Latency, values.RequestID)

			return nil
		},
	}))
	e.Use(middleware.Recover())

	functionKey := functionKeyMiddleware(cfg.FunctionKey)

	e.POST(RouteVisionToSpeech, h.VisionToSpeech, functionKey)
	e.POST(RouteVisionToSpeechKebab, h.VisionToSpeech, functionKey)
	e.GET(RouteHealth, h.Health)
	e.GET(RouteMetrics, echo.WrapHandler(serviceMetrics.Handler()))

	return e
}

// functionKeyMiddleware requires the configured key in the x-functions-key header or
// the code query parameter. An empty key disables the check.
func functionKeyMiddleware(functionKey string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(_ echo.Context) bool {
			return functionKey == ""
		},
		KeyLookup: functionKeyLookup,
		Validator: func(key string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(functionKey)) == 1, nil
		},
		ErrorHandler: func(_ error, c echo.Context) error {
			return c.String(http.StatusUnauthorized, MsgUnauthorized)
		},
	})
}
