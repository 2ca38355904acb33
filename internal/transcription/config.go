package transcription

import (
	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

// OptionsFromConfig maps service configuration onto orchestrator options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithMaxSegmentBytes(cfg.SegmentMaxBytes),
		WithConcurrencyLimit(cfg.ConcurrencyLimit),
		WithModel(stt.ModelFor(cfg)),
		WithLanguage(cfg.Language),
		WithTemperature(cfg.Temperature),
		WithSpeakerLabels(cfg.SpeakerLabels),
	}
}
