package transcription

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lexiqai/transcript-gateway/internal/observability"
)

// DefaultConcurrencyLimit is the number of segments transcribed at once.
const DefaultConcurrencyLimit = 3

// TranscribeFunc transcribes a single segment.
type TranscribeFunc func(ctx context.Context, seg Segment) (SegmentResult, error)

// RunBatches transcribes segments in consecutive batches of at most limit.
// Batches run one after another; within a batch every call runs concurrently.
// The first error aborts the run: siblings already in flight finish, their
// results are dropped, and no further batch is started.
func RunBatches(ctx context.Context, segments []Segment, limit int, fn TranscribeFunc, progress ProgressFunc) ([]SegmentResult, error) {
	if limit <= 0 {
		limit = 1
	}

	total := len(segments)
	results := make([]SegmentResult, 0, total)

	for start := 0; start < total; start += limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+limit, total)
		batch := segments[start:end]
		progress.emit(batchMessage(start+1, end, total))
		observability.RecordBatch()

		// each goroutine owns exactly one slot
		slots := make([]SegmentResult, len(batch))
		var g errgroup.Group
		for i, seg := range batch {
			g.Go(func() error {
				res, err := fn(ctx, seg)
				if err != nil {
					return err
				}
				slots[i] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		results = append(results, slots...)
	}

	return results, nil
}
