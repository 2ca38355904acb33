package transcription

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSegments(n int) []Segment {
	segments := make([]Segment, n)
	for i := range segments {
		segments[i] = Segment{Index: i, Start: int64(i), End: int64(i + 1)}
	}
	return segments
}

func TestRunBatches_BatchesAreSequential(t *testing.T) {
	var (
		mu       sync.Mutex
		events   []string
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	barrier := newBatchBarrier(3, 7)
	fn := func(ctx context.Context, seg Segment) (SegmentResult, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		err := barrier.Wait(seg.Index)
		inFlight.Add(-1)
		if err != nil {
			return SegmentResult{}, err
		}

		mu.Lock()
		events = append(events, "done")
		mu.Unlock()
		return SegmentResult{Index: seg.Index, Text: string(rune('a' + seg.Index))}, nil
	}

	recorder := &progressRecorder{}
	progress := func(message string) {
		mu.Lock()
		events = append(events, message)
		mu.Unlock()
		recorder.Func()(message)
	}

	results, err := RunBatches(context.Background(), makeSegments(7), 3, fn, progress)
	require.NoError(t, err)
	require.Len(t, results, 7)
	for i, res := range results {
		assert.Equal(t, i, res.Index)
	}

	assert.Equal(t, int32(3), peak.Load(), "a full batch runs its three calls at once")
	assert.Equal(t, []string{
		"Обработка частей 1-3 из 7...",
		"Обработка частей 4-6 из 7...",
		"Обработка частей 7-7 из 7...",
	}, recorder.Messages())

	// every batch completes before the next one is announced
	assert.Equal(t, []string{
		"Обработка частей 1-3 из 7...", "done", "done", "done",
		"Обработка частей 4-6 из 7...", "done", "done", "done",
		"Обработка частей 7-7 из 7...", "done",
	}, events)
}

func TestRunBatches_FailureStopsLaterBatches(t *testing.T) {
	var (
		mu     sync.Mutex
		called = map[int]bool{}
	)
	boom := errors.New("remote rejected audio")
	fn := func(ctx context.Context, seg Segment) (SegmentResult, error) {
		mu.Lock()
		called[seg.Index] = true
		mu.Unlock()
		if seg.Index == 4 {
			return SegmentResult{}, boom
		}
		return SegmentResult{Index: seg.Index, Text: "ok"}, nil
	}

	results, err := RunBatches(context.Background(), makeSegments(7), 3, fn, nil)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, boom)

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i <= 5; i++ {
		assert.True(t, called[i], "segment %d belongs to a started batch", i)
	}
	assert.False(t, called[6], "no batch may start after a failure")
}

func TestRunBatches_SiblingsInFailedBatchFinish(t *testing.T) {
	var finished atomic.Int32
	fn := func(ctx context.Context, seg Segment) (SegmentResult, error) {
		if seg.Index == 0 {
			return SegmentResult{}, errors.New("fail fast")
		}
		time.Sleep(20 * time.Millisecond)
		finished.Add(1)
		return SegmentResult{Index: seg.Index}, nil
	}

	_, err := RunBatches(context.Background(), makeSegments(3), 3, fn, nil)
	require.Error(t, err)
	assert.Equal(t, int32(2), finished.Load(), "in-flight siblings are awaited before returning")
}

func TestRunBatches_NonPositiveLimitRunsSequentially(t *testing.T) {
	var peak, inFlight atomic.Int32
	fn := func(ctx context.Context, seg Segment) (SegmentResult, error) {
		n := inFlight.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return SegmentResult{Index: seg.Index}, nil
	}

	results, err := RunBatches(context.Background(), makeSegments(4), 0, fn, nil)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Equal(t, int32(1), peak.Load())
}

func TestRunBatches_CanceledContextStopsBeforeNextBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fn := func(ctx context.Context, seg Segment) (SegmentResult, error) {
		calls.Add(1)
		if seg.Index == 0 {
			cancel()
		}
		return SegmentResult{Index: seg.Index}, nil
	}

	_, err := RunBatches(ctx, makeSegments(6), 2, fn, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunBatches_NoSegments(t *testing.T) {
	results, err := RunBatches(context.Background(), nil, 3, func(context.Context, Segment) (SegmentResult, error) {
		t.Fatal("must not be called")
		return SegmentResult{}, nil
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
