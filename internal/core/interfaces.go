// Package core defines the core business contracts for the vision-speech service.
package core

import (
	"context"
	"fmt"
	"io"
)

// ObjectStore defines the interface for interacting with a named blob container.
// Upload must overwrite an existing object of the same key.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data io.Reader) error
}

// ResultReason classifies the outcome of a synthesis call.
type ResultReason int

const (
	// ReasonUnknown is the zero value and is never reported by a synthesizer.
	ReasonUnknown ResultReason = iota
	// ReasonSynthesizingAudioCompleted means the audio file was fully written.
	ReasonSynthesizingAudioCompleted
	// ReasonCanceled means the speech service rejected or aborted the request.
	ReasonCanceled
)

// String returns the reason name.
func (r ResultReason) String() string {
	switch r {
	case ReasonSynthesizingAudioCompleted:
		return "SynthesizingAudioCompleted"
	case ReasonCanceled:
		return "Canceled"
	case ReasonUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("ResultReason(%d)", int(r))
	}
}

// SynthesisResult is the outcome of converting one text to speech.
type SynthesisResult struct {
	ResultID     string
	Reason       ResultReason
	AudioLength  int64
	ErrorDetails string
}

// Completed reports whether the audio was produced.
func (r SynthesisResult) Completed() bool {
	return r.Reason == ReasonSynthesizingAudioCompleted
}

// String renders the result for log lines.
func (r SynthesisResult) String() string {
	return fmt.Sprintf("SynthesisResult(ResultID=%s, Reason=%s, AudioLength=%d, ErrorDetails=%q)",
		r.ResultID, r.Reason, r.AudioLength, r.ErrorDetails)
}

// SpeechSynthesizer converts text into a WAV file at outputPath.
//
// A returned error means the call itself could not be carried out (local I/O, a
// cancelled context). Service-side failures are reported through the result reason.
type SpeechSynthesizer interface {
	SpeakTextToFile(ctx context.Context, text, outputPath string) (SynthesisResult, error)
}
