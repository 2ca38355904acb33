package stt

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiConfig captures the settings required to talk to the Gemini API.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional override, used by tests and proxies

	CircuitBreakerMaxFailures  int
	CircuitBreakerResetTimeout time.Duration
	CircuitBreakerHalfOpenMax  int
}

// GeminiClient implements Client using generateContent with inline audio.
type GeminiClient struct {
	client         *genai.Client
	model          string
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger
}

// GeminiOption customizes the Gemini client.
type GeminiOption func(*geminiOptions)

type geminiOptions struct {
	httpClient *http.Client
	logger     *zerolog.Logger
}

// WithHTTPClient overrides the HTTP client used by the SDK.
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(o *geminiOptions) {
		o.httpClient = client
	}
}

// WithGeminiLogger overrides the logger.
func WithGeminiLogger(logger zerolog.Logger) GeminiOption {
	return func(o *geminiOptions) {
		o.logger = &logger
	}
}

// NewGeminiClient creates a Gemini transcription client.
// It returns config.ErrMissingCredential without touching the network when no key is configured.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", config.ErrMissingCredential)
	}

	var o geminiOptions
	for _, opt := range opts {
		opt(&o)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultGeminiModel
	}

	logger := observability.GetLogger()
	if o.logger != nil {
		logger = *o.logger
	}

	return &GeminiClient{
		client:         client,
		model:          model,
		circuitBreaker: newProviderBreaker("gemini", breakerSettings{
			maxFailures:  cfg.CircuitBreakerMaxFailures,
			resetTimeout: cfg.CircuitBreakerResetTimeout,
			halfOpenMax:  cfg.CircuitBreakerHalfOpenMax,
		}, logger),
		logger: logger.With().Str("provider", "gemini").Logger(),
	}, nil
}

// Name implements Client.
func (g *GeminiClient) Name() string {
	return "gemini"
}

// CircuitState reports the state of the client's circuit breaker.
func (g *GeminiClient) CircuitState() resilience.CircuitState {
	return g.circuitBreaker.GetState()
}

// Transcribe sends the instruction and the inline audio in a single generateContent call.
func (g *GeminiClient) Transcribe(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("gemini: nil request")
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: req.Instruction},
			{InlineData: &genai.Blob{MIMEType: req.MIMEType, Data: req.Audio}},
		},
	}}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}

	var text string
	err := g.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return fmt.Errorf("gemini generateContent: %w", err)
		}
		if resp == nil {
			return ErrMalformedResponse
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return fmt.Errorf("gemini blocked the request (%s): %w", resp.PromptFeedback.BlockReason, ErrMalformedResponse)
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		g.logger.Debug().Err(err).Str("model", model).Msg("Gemini transcription failed")
		return nil, err
	}

	return &Response{Text: text}, nil
}
