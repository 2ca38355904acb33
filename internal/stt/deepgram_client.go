package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
)

// DefaultDeepgramModel is used when DeepgramConfig.Model is empty.
const DefaultDeepgramModel = "nova-2"

// DeepgramConfig captures the settings for Deepgram's pre-recorded API.
type DeepgramConfig struct {
	APIKey string
	Model  string
	Host   string // optional override, may carry an http:// scheme

	CircuitBreakerMaxFailures  int
	CircuitBreakerResetTimeout time.Duration
	CircuitBreakerHalfOpenMax  int
}

// DeepgramClient implements Client using Deepgram's pre-recorded REST API.
// Deepgram takes no free-form instruction; language, punctuation and speaker
// labels are expressed as request options instead.
type DeepgramClient struct {
	rest           *prerecorded.Client
	model          string
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// DeepgramOption customizes the Deepgram client.
type DeepgramOption func(*deepgramOptions)

type deepgramOptions struct {
	logger *zerolog.Logger
}

// WithDeepgramLogger overrides the logger.
func WithDeepgramLogger(logger zerolog.Logger) DeepgramOption {
	return func(o *deepgramOptions) {
		o.logger = &logger
	}
}

// NewDeepgramClient creates a new Deepgram pre-recorded client
func NewDeepgramClient(cfg DeepgramConfig, opts ...DeepgramOption) (*DeepgramClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: %w", config.ErrMissingCredential)
	}

	var o deepgramOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := observability.GetLogger()
	if o.logger != nil {
		logger = *o.logger
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultDeepgramModel
	}

	restClient := listenClient.NewREST(apiKey, &interfaces.ClientOptions{Host: strings.TrimSpace(cfg.Host)})

	return &DeepgramClient{
		rest:           prerecorded.New(restClient),
		model:          model,
		circuitBreaker: newProviderBreaker("deepgram", breakerSettings{
			maxFailures:  cfg.CircuitBreakerMaxFailures,
			resetTimeout: cfg.CircuitBreakerResetTimeout,
			halfOpenMax:  cfg.CircuitBreakerHalfOpenMax,
		}, logger),
		logger: logger.With().Str("provider", "deepgram").Logger(),
	}, nil
}

// Name implements Client.
func (d *DeepgramClient) Name() string {
	return "deepgram"
}

// CircuitState reports the state of the client's circuit breaker.
func (d *DeepgramClient) CircuitState() resilience.CircuitState {
	return d.circuitBreaker.GetState()
}

// Transcribe uploads the segment bytes and joins the best alternative of every channel.
func (d *DeepgramClient) Transcribe(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("deepgram: nil request")
	}

	options := d.transcriptionOptions(req)

	var text string
	err := d.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := d.rest.FromStream(ctx, bytes.NewReader(req.Audio), options)
		if err != nil {
			return fmt.Errorf("deepgram pre-recorded request: %w", err)
		}
		if resp == nil || resp.Results == nil {
			return ErrMalformedResponse
		}

		var parts []string
		for _, channel := range resp.Results.Channels {
			if len(channel.Alternatives) == 0 {
				continue
			}
			if t := strings.TrimSpace(channel.Alternatives[0].Transcript); t != "" {
				parts = append(parts, t)
			}
		}
		text = strings.Join(parts, "\n")
		return nil
	})
	if err != nil {
		d.logger.Debug().Err(err).Str("model", options.Model).Msg("Deepgram transcription failed")
		return nil, err
	}

	return &Response{Text: text}, nil
}

func (d *DeepgramClient) transcriptionOptions(req *Request) *interfaces.PreRecordedTranscriptionOptions {
	model := req.Model
	if model == "" {
		model = d.model
	}
	return &interfaces.PreRecordedTranscriptionOptions{
		Model:       model,
		Language:    req.Language,
		Punctuate:   true,
		SmartFormat: true,
		Diarize:     req.SpeakerLabels,
	}
}
