package observability

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalMu     sync.RWMutex
	globalLogger *zerolog.Logger
)

// ParseLevel maps a config string onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// InitLogger installs the global structured logger writing to stdout.
func InitLogger(level string, pretty bool) {
	SetLogger(NewLogger(os.Stdout, level, pretty))
}

// SetLogger installs logger as the global logger. Commands that reserve stdout
// for their own output use it to send logs elsewhere.
func SetLogger(logger zerolog.Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = &logger
	log.Logger = logger
}

// NewLogger builds a logger writing to out without touching global state.
func NewLogger(out io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		// Pretty console output for development
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// GetLogger returns the global logger. Until InitLogger or SetLogger runs it
// returns an info-level stdout logger and leaves global state alone.
func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return NewLogger(os.Stdout, "info", false)
	}
	return *globalLogger
}

// WithCorrelationID creates a logger with a correlation ID
func WithCorrelationID(correlationID string) zerolog.Logger {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return GetLogger().With().Str("correlation_id", correlationID).Logger()
}

// NewCorrelationID generates a new correlation ID
func NewCorrelationID() string {
	return uuid.New().String()
}
