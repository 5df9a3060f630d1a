// Package vision reads image-analysis results produced by a vision service.
package vision

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload is returned when the body is not a JSON document.
	ErrInvalidPayload = errors.New("payload is not valid JSON")
	// ErrCaptionNotFound is returned when description.captions[0].text is absent or empty.
	ErrCaptionNotFound = errors.New("description caption not found")
)

// ExtractCaption returns description.captions[0].text from an analysis document.
// Any missing level, wrong type or empty text yields ErrCaptionNotFound.
func ExtractCaption(data []byte) (string, error) {
	var document any

	err := parseJSON(data, &document)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	description := field(document, "description")
	captions := field(description, "captions")
	first := index(captions, 0)

	text, ok := field(first, "text").(string)
	if !ok || text == "" {
		return "", ErrCaptionNotFound
	}

	return text, nil
}

// parseJSON parses JSON data into the target interface.
func parseJSON(data []byte, target any) error {
	err := json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}

func field(node any, name string) any {
	object, ok := node.(map[string]any)
	if !ok {
		return nil
	}

	return object[name]
}

func index(node any, position int) any {
	array, ok := node.([]any)
	if !ok || position >= len(array) {
		return nil
	}

	return array[position]
}
