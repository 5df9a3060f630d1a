// Package handler exposes the vision-to-speech pipeline over HTTP.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/book-expert/logger"
	"github.com/book-expert/vision-speech-service/internal/metrics"
	"github.com/book-expert/vision-speech-service/internal/pipeline"
	"github.com/book-expert/vision-speech-service/internal/vision"
	"github.com/labstack/echo/v4"
)

// Response bodies.
const (
	MsgUploaded            = "Speech file uploaded successfully."
	MsgDescriptionNotFound = "Description not found."
	MsgSynthesisFailed     = "Failed to synthesize speech."
	MsgInvalidPayload      = "Invalid JSON payload."
	MsgInternalError       = "Failed to process request."
	MsgUnauthorized        = "Unauthorized."
)

// HeaderBlobName carries the name of the uploaded blob on success.
const HeaderBlobName = "X-Blob-Name"

// Processor runs the pipeline for one request body.
type Processor interface {
	Process(ctx context.Context, requestID string, body []byte) (pipeline.Result, error)
}

// Handler serves the VisionToSpeech endpoint.
type Handler struct {
	processor Processor
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// New creates a handler.
func New(processor Processor, serviceMetrics *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		processor: processor,
		metrics:   serviceMetrics,
		log:       log,
	}
}

// VisionToSpeech reads a vision analysis result and replies with a plain-text status.
func (h *Handler) VisionToSpeech(c echo.Context) error {
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)
	h.log.Info("Request %s: VisionToSpeech trigger received a request.", requestID)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.metrics.RecordRequest(metrics.SourceHTTP, metrics.OutcomeFault)

		return h.fault(c, requestID, fmt.Errorf("failed to read request body: %w", err))
	}

	result, err := h.processor.Process(c.Request().Context(), requestID, body)
	h.metrics.RecordRequest(metrics.SourceHTTP, pipeline.Outcome(err))

	switch {
	case err == nil:
		c.Response().Header().Set(HeaderBlobName, result.BlobName)

		return c.String(http.StatusOK, MsgUploaded)
	case errors.Is(err, vision.ErrInvalidPayload):
		return c.String(http.StatusBadRequest, MsgInvalidPayload)
	case errors.Is(err, vision.ErrCaptionNotFound):
		return c.String(http.StatusBadRequest, MsgDescriptionNotFound)
	case errors.Is(err, pipeline.ErrSynthesisFailed):
		return c.String(http.StatusBadRequest, MsgSynthesisFailed)
	default:
		return h.fault(c, requestID, err)
	}
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *Handler) fault(c echo.Context, requestID string, err error) error {
	h.log.Error("Request %s: failed to process request: %v", requestID, err)

	return c.String(http.StatusInternalServerError, MsgInternalError)
}
