// Package speech provides a speech synthesizer backed by the Azure Speech REST API.
//
// The synthesizer follows the contract of the Speech SDK's file output mode: audio is
// written to a caller-chosen WAV path and service-side failures are reported as a
// cancelled result rather than an error.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/book-expert/vision-speech-service/internal/config"
	"github.com/book-expert/vision-speech-service/internal/core"
	"github.com/google/uuid"
)

// API endpoints and paths.
const (
	endpointFormat   = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"
	voicesListFormat = "https://%s.tts.speech.microsoft.com/cognitiveservices/voices/list"
	apiVersionSuffix = "/v1"
	apiVoicesList    = "/voices/list"
)

// HTTP headers.
const (
	headerSubscriptionKey = "Ocp-Apim-Subscription-Key"
	headerContentType     = "Content-Type"
	headerOutputFormat    = "X-Microsoft-OutputFormat"
	headerUserAgent       = "User-Agent"
	headerRequestID       = "X-RequestId"
	contentTypeSSML       = "application/ssml+xml"
	userAgent             = "vision-speech-service"
)

const (
	filePermissions = 0o600
	maxErrorBody    = 4096
)

// Error messages.
const (
	errFmtSendFailed     = "failed to send request to speech service at %s: %v"
	errFmtNonOKStatus    = "speech service returned non-OK status: %s, body: %s"
	errFmtReadFailed     = "failed to read audio data: %v"
	errReceivedEmptyData = "received empty audio data"
)

// ErrTextEmpty is returned when there is nothing to synthesize.
var ErrTextEmpty = errors.New("text cannot be empty")

// AzureSynthesizer implements core.SpeechSynthesizer against the Azure Speech REST API.
type AzureSynthesizer struct {
	httpClient      *http.Client
	endpoint        string
	voicesURL       string
	subscriptionKey string
	voice           string
	language        string
	outputFormat    string
}

// NewAzureSynthesizer creates a synthesizer from the speech configuration.
// An explicit endpoint takes precedence over the region.
func NewAzureSynthesizer(cfg config.SpeechConfig) *AzureSynthesizer {
	endpoint := cfg.Endpoint
	voicesURL := strings.TrimSuffix(endpoint, apiVersionSuffix) + apiVoicesList

	if endpoint == "" {
		endpoint = fmt.Sprintf(endpointFormat, cfg.Region)
		voicesURL = fmt.Sprintf(voicesListFormat, cfg.Region)
	}

	return &AzureSynthesizer{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		endpoint:        endpoint,
		voicesURL:       voicesURL,
		subscriptionKey: cfg.SubscriptionKey,
		voice:           cfg.Voice,
		language:        cfg.Language,
		outputFormat:    cfg.OutputFormat,
	}
}

// SpeakTextToFile synthesizes text and writes the audio to outputPath.
func (s *AzureSynthesizer) SpeakTextToFile(
	ctx context.Context,
	text, outputPath string,
) (core.SynthesisResult, error) {
	if text == "" {
		return core.SynthesisResult{}, ErrTextEmpty
	}

	ssml, err := BuildSSML(text, s.voice, s.language)
	if err != nil {
		return core.SynthesisResult{}, fmt.Errorf("failed to build SSML: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(ssml))
	if err != nil {
		return core.SynthesisResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerSubscriptionKey, s.subscriptionKey)
	req.Header.Set(headerContentType, contentTypeSSML)
	req.Header.Set(headerOutputFormat, s.outputFormat)
	req.Header.Set(headerUserAgent, userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.SynthesisResult{}, fmt.Errorf("speech request aborted: %w", ctx.Err())
		}

		return canceled(uuid.NewString(), fmt.Sprintf(errFmtSendFailed, s.endpoint, err)), nil
	}
	defer resp.Body.Close()

	resultID := resp.Header.Get(headerRequestID)
	if resultID == "" {
		resultID = uuid.NewString()
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return canceled(resultID, fmt.Sprintf(errFmtNonOKStatus, resp.Status, string(body))), nil
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return core.SynthesisResult{}, fmt.Errorf("speech request aborted: %w", ctx.Err())
		}

		return canceled(resultID, fmt.Sprintf(errFmtReadFailed, err)), nil
	}

	if len(audioData) == 0 {
		return canceled(resultID, errReceivedEmptyData), nil
	}

	err = os.WriteFile(outputPath, audioData, filePermissions)
	if err != nil {
		return core.SynthesisResult{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	return core.SynthesisResult{
		ResultID:     resultID,
		Reason:       core.ReasonSynthesizingAudioCompleted,
		AudioLength:  int64(len(audioData)),
		ErrorDetails: "",
	}, nil
}

// HealthCheck verifies that the speech service accepts the configured credentials.
func (s *AzureSynthesizer) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.voicesURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	req.Header.Set(headerSubscriptionKey, s.subscriptionKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for speech service at %s: %w", s.voicesURL, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func canceled(resultID, details string) core.SynthesisResult {
	return core.SynthesisResult{
		ResultID:     resultID,
		Reason:       core.ReasonCanceled,
		AudioLength:  0,
		ErrorDetails: strings.TrimSpace(strings.ToValidUTF8(details, "")),
	}
}
