package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Supported remote transcription providers.
const (
	ProviderGemini   = "gemini"
	ProviderDeepgram = "deepgram"
)

// ErrMissingCredential is returned by Validate when the selected provider has no API key.
var ErrMissingCredential = errors.New("transcription provider credential is missing")

// Config holds all configuration for the transcript gateway
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Remote transcription provider: gemini or deepgram
	Provider string `envconfig:"TRANSCRIBER_PROVIDER" default:"gemini"`

	// Gemini API configuration. API_KEY is accepted as a fallback for the key.
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"` // Flash has higher rate limits for parallel segments
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:""`

	// Deepgram pre-recorded API configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramHost   string `envconfig:"DEEPGRAM_HOST"` // empty means api.deepgram.com

	// Transcription behaviour
	Language      string  `envconfig:"TRANSCRIPT_LANGUAGE" default:"ru"`
	Temperature   float32 `envconfig:"TRANSCRIPTION_TEMPERATURE" default:"0.2"`
	SpeakerLabels bool    `envconfig:"SPEAKER_LABELS" default:"true"`

	// Segmentation and scheduling
	SegmentMaxBytes  int64 `envconfig:"SEGMENT_MAX_BYTES" default:"10485760"` // 10 MiB
	ConcurrencyLimit int   `envconfig:"CONCURRENCY_LIMIT" default:"3"`

	// Uploads and job retention
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"2147483648"` // 2 GiB
	UploadDir      string `envconfig:"UPLOAD_DIR" default:""`                 // empty means os.TempDir()
	JobRetention   int    `envconfig:"JOB_RETENTION" default:"3600"`          // seconds

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	CircuitBreakerHalfOpenMax  int `envconfig:"CIRCUIT_BREAKER_HALF_OPEN_MAX" default:"3"`  // Trial calls allowed while half-open

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("API_KEY")
	}

	if err := cfg.checkRanges(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected provider can be used.
// A missing credential is reported as ErrMissingCredential so callers can fail
// before any work starts.
func (c *Config) Validate() error {
	var keyVar string
	switch c.Provider {
	case ProviderGemini:
		keyVar = "GEMINI_API_KEY"
	case ProviderDeepgram:
		keyVar = "DEEPGRAM_API_KEY"
	default:
		return fmt.Errorf("unsupported TRANSCRIBER_PROVIDER %q", c.Provider)
	}
	if strings.TrimSpace(c.APIKey()) == "" {
		return fmt.Errorf("%s is required: %w", keyVar, ErrMissingCredential)
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == ProviderDeepgram {
		return c.DeepgramAPIKey
	}
	return c.GeminiAPIKey
}

// JobRetentionDuration returns JobRetention as a duration.
func (c *Config) JobRetentionDuration() time.Duration {
	return time.Duration(c.JobRetention) * time.Second
}

func (c *Config) checkRanges() error {
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("SEGMENT_MAX_BYTES must be positive, got %d", c.SegmentMaxBytes)
	}
	if c.ConcurrencyLimit <= 0 {
		return fmt.Errorf("CONCURRENCY_LIMIT must be positive, got %d", c.ConcurrencyLimit)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.CircuitBreakerHalfOpenMax <= 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_HALF_OPEN_MAX must be positive, got %d", c.CircuitBreakerHalfOpenMax)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TRANSCRIPTION_TEMPERATURE must be within [0, 2], got %v", c.Temperature)
	}
	return nil
}
