package stt

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
)

const (
	defaultBreakerMaxFailures  = 5
	defaultBreakerResetTimeout = 30 * time.Second
)

// breakerSettings tunes the circuit breaker guarding one provider.
type breakerSettings struct {
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
}

// newProviderBreaker builds a circuit breaker that mirrors its state into Prometheus.
func newProviderBreaker(name string, settings breakerSettings, logger zerolog.Logger) *resilience.CircuitBreaker {
	maxFailures, resetTimeout := settings.maxFailures, settings.resetTimeout
	if maxFailures <= 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultBreakerResetTimeout
	}

	observability.UpdateCircuitBreakerState(name, int(resilience.StateClosed))

	return resilience.NewCircuitBreaker(name, maxFailures, resetTimeout,
		resilience.WithHalfOpenMax(settings.halfOpenMax),
		resilience.WithStateChange(func(service string, from, to resilience.CircuitState) {
			observability.UpdateCircuitBreakerState(service, int(to))
			if to == resilience.StateOpen {
				observability.IncrementCircuitBreakerFailures(service)
			}
			logger.Warn().
				Str("service", service).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		}),
	)
}
