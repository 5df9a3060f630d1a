// Package pipeline turns a vision analysis result into an uploaded speech file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/vision-speech-service/internal/core"
	"github.com/book-expert/vision-speech-service/internal/metrics"
	"github.com/book-expert/vision-speech-service/internal/vision"
	"github.com/google/uuid"
)

const (
	scratchPattern = "speech-*.wav"
	audioExtension = ".wav"
)

// ErrSynthesisFailed is returned when the synthesizer reports anything other than completion.
var ErrSynthesisFailed = errors.New("speech synthesis did not complete")

// Options controls where scratch audio is written and how the blob is named.
type Options struct {
	ScratchDir      string
	BlobName        string
	UniqueBlobNames bool
}

// Result describes a successfully uploaded speech file.
type Result struct {
	RequestID  string
	Caption    string
	BlobName   string
	AudioBytes int64
}

// Service runs extract, synthesize and upload for one request at a time.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	synthesizer core.SpeechSynthesizer
	store       core.ObjectStore
	metrics     *metrics.Metrics
	log         *logger.Logger
	options     Options
}

// New creates a pipeline service.
func New(
	synthesizer core.SpeechSynthesizer,
	store core.ObjectStore,
	serviceMetrics *metrics.Metrics,
	log *logger.Logger,
	options Options,
) *Service {
	return &Service{
		synthesizer: synthesizer,
		store:       store,
		metrics:     serviceMetrics,
		log:         log,
		options:     options,
	}
}

// Process extracts the caption from body, synthesizes it and uploads the audio.
//
// vision.ErrInvalidPayload, vision.ErrCaptionNotFound and ErrSynthesisFailed are
// client-facing outcomes. Any other error is a fault.
func (s *Service) Process(ctx context.Context, requestID string, body []byte) (Result, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	caption, err := vision.ExtractCaption(body)
	if err != nil {
		s.log.Error("Request %s: %v", requestID, err)

		return Result{}, err
	}

	scratchPath, err := s.createScratchFile()
	if err != nil {
		return Result{}, err
	}

	defer s.removeScratchFile(scratchPath)

	audioBytes, err := s.synthesize(ctx, requestID, caption, scratchPath)
	if err != nil {
		return Result{}, err
	}

	blobName := s.blobName()

	err = s.upload(ctx, blobName, scratchPath)
	if err != nil {
		return Result{}, err
	}

	s.metrics.ObserveAudioBytes(audioBytes)
	s.log.Info("Request %s: uploaded %d bytes of speech to blob '%s'.", requestID, audioBytes, blobName)

	return Result{
		RequestID:  requestID,
		Caption:    caption,
		BlobName:   blobName,
		AudioBytes: audioBytes,
	}, nil
}

// Outcome maps a Process error to its metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeUploaded
	case errors.Is(err, vision.ErrInvalidPayload):
		return metrics.OutcomeInvalidPayload
	case errors.Is(err, vision.ErrCaptionNotFound):
		return metrics.OutcomeMissingCaption
	case errors.Is(err, ErrSynthesisFailed):
		return metrics.OutcomeSynthesisFailed
	default:
		return metrics.OutcomeFault
	}
}

func (s *Service) synthesize(ctx context.Context, requestID, caption, scratchPath string) (int64, error) {
	started := time.Now()
	result, err := s.synthesizer.SpeakTextToFile(ctx, caption, scratchPath)
	s.metrics.ObserveStage(metrics.StageSynthesis, time.Since(started))

	if err != nil {
		return 0, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if !result.Completed() {
		s.log.Error("Request %s: error synthesizing speech: %s", requestID, result)

		return 0, fmt.Errorf("%w: %s", ErrSynthesisFailed, result.Reason)
	}

	s.log.Info("Request %s: successfully synthesized the text to speech.", requestID)

	return result.AudioLength, nil
}

func (s *Service) upload(ctx context.Context, blobName, scratchPath string) error {
	audioFile, err := os.Open(scratchPath)
	if err != nil {
		return fmt.Errorf("failed to open scratch audio file: %w", err)
	}
	defer audioFile.Close()

	started := time.Now()
	err = s.store.Upload(ctx, blobName, audioFile)
	s.metrics.ObserveStage(metrics.StageUpload, time.Since(started))

	if err != nil {
		return fmt.Errorf("failed to upload audio data for key '%s': %w", blobName, err)
	}

	return nil
}

func (s *Service) createScratchFile() (string, error) {
	scratchFile, err := os.CreateTemp(s.options.ScratchDir, scratchPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file for speech output: %w", err)
	}

	err = scratchFile.Close()
	if err != nil {
		s.removeScratchFile(scratchFile.Name())

		return "", fmt.Errorf("failed to close scratch file '%s': %w", scratchFile.Name(), err)
	}

	return scratchFile.Name(), nil
}

func (s *Service) removeScratchFile(path string) {
	removeErr := os.Remove(path)
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		s.log.Warn("Failed to remove scratch file '%s': %v", path, removeErr)
	}
}

// blobName never derives from the request ID, which callers can set through X-Request-ID.
func (s *Service) blobName() string {
	if s.options.UniqueBlobNames {
		return uuid.NewString() + audioExtension
	}

	return s.options.BlobName
}
