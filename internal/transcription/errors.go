package transcription

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/resilience"
)

// Kind classifies a failed orchestration.
type Kind string

const (
	KindConfiguration        Kind = "configuration"
	KindInvalidInput         Kind = "invalid_input"
	KindSegmentTranscription Kind = "segment_transcription"
	KindCanceled             Kind = "canceled"
	KindUnknown              Kind = "unknown"
)

// ErrEmptySource is returned for zero-length input.
var ErrEmptySource = errors.New("transcription: source is empty")

// SegmentError reports a failed remote call for one segment.
type SegmentError struct {
	Position int // 1-based
	Total    int
	Err      error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d of %d: %v", e.Position, e.Total, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// Error is the failure outcome of an orchestration.
// Message is safe to show to end users; Err carries the cause.
type Error struct {
	Kind     Kind
	Position int // 1-based failing segment, 0 when unknown
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transcription %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("transcription %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports a setup problem found before any work starts.
// Errors wrapping config.ErrMissingCredential get the missing key message.
func NewConfigurationError(err error) *Error {
	msg := "Некорректная конфигурация сервиса транскрибации."
	if errors.Is(err, config.ErrMissingCredential) {
		msg = "Не задан ключ API сервиса транскрибации."
	}
	return &Error{Kind: KindConfiguration, Message: msg, Err: err}
}

func invalidInputError(err error) *Error {
	msg := "Некорректный входной файл."
	if errors.Is(err, ErrEmptySource) {
		msg = "Файл пуст: нечего транскрибировать."
	}
	return &Error{Kind: KindInvalidInput, Message: msg, Err: err}
}

// classify wraps err into an *Error, naming the failing segment when known.
func classify(ctx context.Context, err error) *Error {
	var failure *Error
	if errors.As(err, &failure) {
		return failure
	}
	if ctx.Err() != nil {
		return &Error{Kind: KindCanceled, Message: "Транскрибация отменена.", Err: err}
	}

	var segErr *SegmentError
	if errors.As(err, &segErr) {
		msg := fmt.Sprintf("Ошибка при обработке части %d. Попробуйте снова.", segErr.Position)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			// The breaker rejected the call; the segment itself never reached the provider.
			msg = "Сервис транскрибации временно недоступен. Попробуйте позже."
		}
		return &Error{
			Kind:     KindSegmentTranscription,
			Position: segErr.Position,
			Message:  msg,
			Err:      err,
		}
	}
	return &Error{Kind: KindUnknown, Message: "Произошла ошибка при обработке.", Err: err}
}
