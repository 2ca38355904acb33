package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

const (
	defaultLanguage    = "ru"
	defaultTemperature = float32(0.2)
)

// Orchestrator is the single entry point that turns a recording into a transcript.
type Orchestrator struct {
	transcriber     *Transcriber
	maxSegmentBytes int64
	concurrency     int
	logger          *zerolog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMaxSegmentBytes overrides the segment size ceiling (default 10 MiB).
func WithMaxSegmentBytes(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSegmentBytes = n
		}
	}
}

// WithConcurrencyLimit overrides the batch size (default 3).
func WithConcurrencyLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithModel sets the provider model identifier; empty keeps the client default.
func WithModel(model string) Option {
	return func(o *Orchestrator) {
		o.transcriber.model = model
	}
}

// WithLanguage sets the transcript language code (default "ru").
func WithLanguage(code string) Option {
	return func(o *Orchestrator) {
		if code != "" {
			o.transcriber.language = code
		}
	}
}

// WithTemperature sets the decoding temperature (default 0.2).
func WithTemperature(t float32) Option {
	return func(o *Orchestrator) {
		o.transcriber.temperature = t
	}
}

// WithSpeakerLabels toggles speaker turn labels in the instruction (default on).
func WithSpeakerLabels(enabled bool) Option {
	return func(o *Orchestrator) {
		o.transcriber.speakerLabels = enabled
	}
}

// WithLogger sets the fallback logger used when the call context carries none.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = &logger
	}
}

// New builds an Orchestrator around a remote client. A nil client is a
// configuration error reported here, before any file is touched.
func New(client stt.Client, opts ...Option) (*Orchestrator, error) {
	if client == nil {
		return nil, NewConfigurationError(fmt.Errorf("no remote client: %w", config.ErrMissingCredential))
	}

	o := &Orchestrator{
		transcriber: &Transcriber{
			client:        client,
			language:      defaultLanguage,
			temperature:   defaultTemperature,
			speakerLabels: true,
		},
		maxSegmentBytes: DefaultMaxSegmentBytes,
		concurrency:     DefaultConcurrencyLimit,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Provider returns the remote client name.
func (o *Orchestrator) Provider() string {
	return o.transcriber.client.Name()
}

// Transcribe splits src, transcribes every segment and returns the joined transcript.
// Any failure is returned as an *Error; no partial transcript is ever returned.
func (o *Orchestrator) Transcribe(ctx context.Context, src *Source, mimeType string, progress ProgressFunc) (string, error) {
	logger := o.loggerFor(ctx)
	ctx = logger.WithContext(ctx)

	metrics := observability.StartTranscription()
	start := time.Now()

	transcript, err := o.run(ctx, src, mimeType, progress)
	if err != nil {
		failure := classify(ctx, err)
		metrics.Finish(string(failure.Kind))
		logger.Error().
			Err(failure.Err).
			Str("kind", string(failure.Kind)).
			Int("segment", failure.Position).
			Msg("Transcription failed")
		return "", failure
	}

	metrics.Finish("success")
	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("chars", len(transcript)).
		Msg("Transcription finished")
	return transcript, nil
}

func (o *Orchestrator) run(ctx context.Context, src *Source, mimeType string, progress ProgressFunc) (string, error) {
	if src == nil || src.Size() == 0 {
		return "", invalidInputError(ErrEmptySource)
	}

	logger := loggerFrom(ctx)
	count := SegmentCount(src.Size(), o.maxSegmentBytes)
	progress.emit(preparingMessage(count))

	segments, err := Split(src, o.maxSegmentBytes, mimeType)
	if err != nil {
		return "", invalidInputError(err)
	}
	logger.Info().
		Str("size", humanize.IBytes(uint64(src.Size()))).
		Str("mime_type", mimeType).
		Int("segments", len(segments)).
		Int("concurrency", o.concurrency).
		Str("provider", o.Provider()).
		Msg("Transcription started")

	total := len(segments)
	results, err := RunBatches(ctx, segments, o.concurrency, func(ctx context.Context, seg Segment) (SegmentResult, error) {
		return o.transcriber.Transcribe(ctx, seg, total)
	}, progress)
	if err != nil {
		return "", err
	}

	progress.emit(assemblingMessage)
	return Assemble(results), nil
}

func (o *Orchestrator) loggerFor(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	if o.logger != nil {
		return *o.logger
	}
	return observability.GetLogger()
}

// FailureMessage returns the user-facing message for err.
func FailureMessage(err error) string {
	var failure *Error
	if errors.As(err, &failure) && failure.Message != "" {
		return failure.Message
	}
	return "Произошла ошибка при обработке."
}
