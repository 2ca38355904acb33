package stt

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned when the provider answers without a usable payload.
var ErrMalformedResponse = errors.New("stt: malformed response")

// Request is one remote transcription call for a single segment of audio.
type Request struct {
	// Model is the provider model identifier
	Model string

	// Instruction is the natural language instruction sent with the audio.
	// Providers without prompt support ignore it.
	Instruction string

	// Audio is the raw segment content
	Audio []byte

	// MIMEType is the declared type of Audio, passed through unchanged
	MIMEType string

	// Language is the expected transcript language (e.g. "ru")
	Language string

	// Temperature is the decoding temperature; low values keep output near-deterministic
	Temperature float32

	// SpeakerLabels asks the provider to label speaker turns when it can
	SpeakerLabels bool
}

// Response is the result of a remote transcription call.
type Response struct {
	// Text is the transcript; empty when the provider returned no text
	Text string
}

// Client is the interface for remote speech-to-text providers
type Client interface {
	// Name identifies the provider in logs and metrics
	Name() string

	// Transcribe performs exactly one remote call for req
	Transcribe(ctx context.Context, req *Request) (*Response, error)
}
