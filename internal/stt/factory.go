package stt

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
)

// NewClient builds the client selected by cfg.Provider. Client and breaker
// events are written to logger.
func NewClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Client, error) {
	resetTimeout := time.Duration(cfg.CircuitBreakerResetTimeout) * time.Second

	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:                     cfg.GeminiAPIKey,
			Model:                      cfg.GeminiModel,
			BaseURL:                    cfg.GeminiBaseURL,
			CircuitBreakerMaxFailures:  cfg.CircuitBreakerMaxFailures,
			CircuitBreakerResetTimeout: resetTimeout,
			CircuitBreakerHalfOpenMax:  cfg.CircuitBreakerHalfOpenMax,
		}, WithGeminiLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderDeepgram:
		client, err := NewDeepgramClient(DeepgramConfig{
			APIKey:                     cfg.DeepgramAPIKey,
			Model:                      cfg.DeepgramModel,
			Host:                       cfg.DeepgramHost,
			CircuitBreakerMaxFailures:  cfg.CircuitBreakerMaxFailures,
			CircuitBreakerResetTimeout: resetTimeout,
			CircuitBreakerHalfOpenMax:  cfg.CircuitBreakerHalfOpenMax,
		}, WithDeepgramLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("stt: unsupported provider %q", cfg.Provider)
	}
}

// ModelFor returns the configured model name of the selected provider.
func ModelFor(cfg *config.Config) string {
	if cfg.Provider == config.ProviderDeepgram {
		return cfg.DeepgramModel
	}
	return cfg.GeminiModel
}
