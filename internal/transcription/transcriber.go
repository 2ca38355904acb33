package transcription

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/stt"
)

// SegmentResult is the transcript of one segment, tagged with its original index.
type SegmentResult struct {
	Index int
	Text  string
}

// Transcriber turns one segment into one remote request.
type Transcriber struct {
	client        stt.Client
	model         string
	language      string
	temperature   float32
	speakerLabels bool
}

// Transcribe reads the segment, sends it with a positional instruction and
// returns its text. A response without text yields an empty result, not an error.
func (t *Transcriber) Transcribe(ctx context.Context, seg Segment, total int) (SegmentResult, error) {
	logger := loggerFrom(ctx).With().
		Int("segment", seg.Position()).
		Int("total_segments", total).
		Logger()

	audio := make([]byte, seg.Len())
	if _, err := io.ReadFull(seg.Reader(), audio); err != nil {
		return SegmentResult{}, &SegmentError{
			Position: seg.Position(),
			Total:    total,
			Err:      fmt.Errorf("read segment bytes: %w", err),
		}
	}

	req := &stt.Request{
		Model:         t.model,
		Instruction:   BuildInstruction(seg.Position(), total, t.language, t.speakerLabels),
		Audio:         audio,
		MIMEType:      seg.MIMEType,
		Language:      t.language,
		Temperature:   t.temperature,
		SpeakerLabels: t.speakerLabels,
	}

	start := time.Now()
	resp, err := t.client.Transcribe(ctx, req)
	observability.RecordSegment(t.client.Name(), time.Since(start), err == nil && resp != nil)
	if err == nil && resp == nil {
		err = stt.ErrMalformedResponse
	}
	if err != nil {
		observability.RecordError("segment_transcription", t.client.Name())
		logger.Error().Err(err).Msg("Segment transcription failed")
		return SegmentResult{}, &SegmentError{Position: seg.Position(), Total: total, Err: err}
	}

	if resp.Text == "" {
		logger.Warn().Msg("Segment returned no text")
	} else {
		logger.Debug().
			Int("chars", len(resp.Text)).
			Dur("latency", time.Since(start)).
			Msg("Segment transcribed")
	}
	return SegmentResult{Index: seg.Index, Text: resp.Text}, nil
}

// loggerFrom returns the logger attached to ctx, or the global logger.
func loggerFrom(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return observability.GetLogger()
}
