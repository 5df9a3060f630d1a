// main package for the vision-speech-client, a command-line caller of the VisionToSpeech endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Flag descriptions.
const (
	flagURLDesc     = "Base URL of the vision-speech-service"
	flagCaptionDesc = "Caption text to wrap in a vision analysis payload"
	flagFileDesc    = "Path to a vision analysis JSON file"
	flagKeyDesc     = "Function key sent as x-functions-key"
	flagHealthDesc  = "Check service health and exit"
	flagTimeoutDesc = "Request timeout"
)

// Flag names.
const (
	flagURL     = "url"
	flagCaption = "caption"
	flagFile    = "file"
	flagKey     = "key"
	flagHealth  = "health"
	flagTimeout = "timeout"
)

const (
	defaultURL         = "http://localhost:8080"
	defaultTimeout     = 2 * time.Minute
	routeVisionSpeech  = "/api/VisionToSpeech"
	routeHealth        = "/healthz"
	headerFunctionKey  = "x-functions-key"
	headerBlobName     = "X-Blob-Name"
	contentTypeJSON    = "application/json"
	headerContentType  = "Content-Type"
	maxResponseMessage = 64 * 1024
)

var (
	// ErrEitherCaptionOrFile is returned when no input was given.
	ErrEitherCaptionOrFile = errors.New("either --caption or --file must be provided")
	// ErrCannotSpecifyBoth is returned when both inputs were given.
	ErrCannotSpecifyBoth = errors.New("cannot specify both --caption and --file")
	// ErrRequestRejected is returned for any non-200 response.
	ErrRequestRejected = errors.New("request rejected")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	url     string
	caption string
	file    string
	key     string
	health  bool
	timeout time.Duration
}

type visionCaption struct {
	Text string `json:"text"`
}

type visionDescription struct {
	Captions []visionCaption `json:"captions"`
}

type visionAnalysis struct {
	Description visionDescription `json:"description"`
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application entry point, returning an error on failure.
func run(args []string, out io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	client := &http.Client{Timeout: flags.timeout}

	if flags.health {
		return checkHealth(ctx, client, flags.url, out)
	}

	err = validateFlags(flags)
	if err != nil {
		return err
	}

	payload, err := buildPayload(flags)
	if err != nil {
		return err
	}

	return submit(ctx, client, flags, payload, out)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("vision-speech-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.url, flagURL, defaultURL, flagURLDesc)
	flagSet.StringVar(&flags.caption, flagCaption, "", flagCaptionDesc)
	flagSet.StringVar(&flags.file, flagFile, "", flagFileDesc)
	flagSet.StringVar(&flags.key, flagKey, os.Getenv("VISION_SPEECH_FUNCTION_KEY"), flagKeyDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("failed to parse flags: %w", err)
	}

	flags.url = strings.TrimRight(flags.url, "/")

	return flags, nil
}

func validateFlags(flags appFlags) error {
	if flags.caption == "" && flags.file == "" {
		return ErrEitherCaptionOrFile
	}

	if flags.caption != "" && flags.file != "" {
		return ErrCannotSpecifyBoth
	}

	return nil
}

// buildPayload reads the analysis file as-is, or wraps the caption in the minimal analysis shape.
func buildPayload(flags appFlags) ([]byte, error) {
	if flags.file != "" {
		data, err := os.ReadFile(flags.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read analysis file: %w", err)
		}

		return data, nil
	}

	payload, err := json.Marshal(visionAnalysis{
		Description: visionDescription{
			Captions: []visionCaption{{Text: flags.caption}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return payload, nil
}

func submit(ctx context.Context, client *http.Client, flags appFlags, payload []byte, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, flags.url+routeVisionSpeech, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	if flags.key != "" {
		req.Header.Set(headerFunctionKey, flags.key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", flags.url, err)
	}
	defer resp.Body.Close()

	message, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseMessage))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrRequestRejected, resp.Status, string(message))
	}

	fmt.Fprintln(out, string(message))

	blobName := resp.Header.Get(headerBlobName)
	if blobName != "" {
		fmt.Fprintf(out, "Blob: %s\n", blobName)
	}

	return nil
}

// checkHealth performs a service health check and prints the result.
func checkHealth(ctx context.Context, client *http.Client, baseURL string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+routeHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", ErrRequestRejected, resp.Status)
	}

	fmt.Fprintln(out, "Vision-speech service is healthy")

	return nil
}
