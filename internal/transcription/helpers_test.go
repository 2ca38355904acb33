package transcription

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lexiqai/transcript-gateway/internal/stt"
)

// patternReaderAt yields byte('a'+k) for every offset in the k-th block of blockSize bytes.
type patternReaderAt struct {
	size      int64
	blockSize int64
}

func (p patternReaderAt) ReadAt(b []byte, off int64) (int, error) {
	if off >= p.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(b) && off+int64(n) < p.size {
		b[n] = byte('a' + (off+int64(n))/p.blockSize)
		n++
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func patternSource(size, blockSize int64) *Source {
	return NewSource(patternReaderAt{size: size, blockSize: blockSize}, size)
}

// batchBarrier holds every call of a batch until the whole batch has arrived,
// so a batch that is not fully concurrent times out instead of passing.
type batchBarrier struct {
	limit   int
	total   int
	timeout time.Duration

	mu      sync.Mutex
	arrived map[int]int
}

func newBatchBarrier(limit, total int) *batchBarrier {
	return &batchBarrier{limit: limit, total: total, timeout: 2 * time.Second, arrived: map[int]int{}}
}

// Wait registers the segment at index and blocks until its batch is complete.
func (b *batchBarrier) Wait(index int) error {
	batch := index / b.limit
	size := min(b.limit, b.total-batch*b.limit)

	b.mu.Lock()
	b.arrived[batch]++
	b.mu.Unlock()

	deadline := time.Now().Add(b.timeout)
	for {
		b.mu.Lock()
		n := b.arrived[batch]
		b.mu.Unlock()
		if n >= size {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("batch %d: only %d of %d calls in flight", batch+1, n, size)
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeClient answers with "text-<letter>" based on the first audio byte.
type fakeClient struct {
	delay   time.Duration
	respond func(req *stt.Request) (*stt.Response, error)
	barrier *batchBarrier

	mu       sync.Mutex
	requests []*stt.Request

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Transcribe(ctx context.Context, req *stt.Request) (*stt.Response, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.barrier != nil {
		if err := f.barrier.Wait(segmentIndexOf(req)); err != nil {
			return nil, err
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.respond != nil {
		return f.respond(req)
	}
	return &stt.Response{Text: textFor(req)}, nil
}

func (f *fakeClient) Requests() []*stt.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*stt.Request(nil), f.requests...)
}

func textFor(req *stt.Request) string {
	if len(req.Audio) == 0 {
		return "text-?"
	}
	return "text-" + string(req.Audio[0])
}

func segmentIndexOf(req *stt.Request) int {
	return int(req.Audio[0] - 'a')
}

type progressRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (p *progressRecorder) Func() ProgressFunc {
	return func(message string) {
		p.mu.Lock()
		p.messages = append(p.messages, message)
		p.mu.Unlock()
	}
}

func (p *progressRecorder) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.messages...)
}
