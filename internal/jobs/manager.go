package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/transcript-gateway/internal/observability"
	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

var (
	// ErrNotFound is returned for unknown or pruned job IDs.
	ErrNotFound = errors.New("jobs: job not found")

	// ErrNotReady is returned when a transcript is requested before the job succeeded.
	ErrNotReady = errors.New("jobs: transcript is not available")

	// ErrShuttingDown is returned by Submit after Shutdown was called.
	ErrShuttingDown = errors.New("jobs: manager is shutting down")
)

const (
	defaultRetention = time.Hour

	initializingMessage = "Инициализация..."
	succeededMessage    = "Транскрибация завершена."
)

// Transcriber runs one orchestration. *transcription.Orchestrator satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, src *transcription.Source, mimeType string, progress transcription.ProgressFunc) (string, error)
}

// Input describes an uploaded recording. Cleanup, when set, runs exactly once
// after the job finishes, releasing whatever backs Source.
type Input struct {
	Filename string
	MIMEType string
	Source   *transcription.Source
	Cleanup  func()
}

// Manager is an in-memory registry of transcription jobs.
type Manager struct {
	transcriber Transcriber
	retention   time.Duration
	logger      zerolog.Logger
	now         func() time.Time

	mu     sync.RWMutex
	jobs   map[string]*job
	closed bool

	wg sync.WaitGroup
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRetention sets how long finished jobs are kept (default one hour).
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithLogger sets the base logger for job goroutines.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates an empty registry that runs jobs through t.
func NewManager(t Transcriber, opts ...Option) *Manager {
	m := &Manager{
		transcriber: t,
		retention:   defaultRetention,
		logger:      observability.GetLogger(),
		now:         time.Now,
		jobs:        make(map[string]*job),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit registers a job and starts transcribing it in the background.
func (m *Manager) Submit(in Input) (Snapshot, error) {
	if in.Source == nil {
		return Snapshot{}, fmt.Errorf("submit %q: nil source", in.Filename)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		id:        uuid.New().String(),
		filename:  in.Filename,
		mimeType:  in.MIMEType,
		size:      in.Source.Size(),
		status:    StatusPending,
		createdAt: m.now(),
		cancel:    cancel,
		cleanup:   in.Cleanup,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return Snapshot{}, ErrShuttingDown
	}
	m.jobs[j.id] = j
	m.wg.Add(1)
	m.mu.Unlock()

	snap := j.snapshot()
	go m.run(ctx, j, in.Source)
	return snap, nil
}

func (m *Manager) run(ctx context.Context, j *job, src *transcription.Source) {
	defer m.wg.Done()
	defer j.cancel()
	if j.cleanup != nil {
		defer j.cleanup()
	}

	logger := m.logger.With().
		Str("job_id", j.id).
		Str("correlation_id", observability.NewCorrelationID()).
		Str("filename", j.filename).
		Logger()
	ctx = logger.WithContext(ctx)

	j.mu.Lock()
	j.status = StatusTranscribing
	j.mu.Unlock()
	j.publish(initializingMessage)
	logger.Info().Int64("size", j.size).Str("mime_type", j.mimeType).Msg("Job started")

	transcript, err := m.transcriber.Transcribe(ctx, src, j.mimeType, j.publish)
	if err != nil {
		var failure *transcription.Error
		kind := string(transcription.KindUnknown)
		position := 0
		if errors.As(err, &failure) {
			kind = string(failure.Kind)
			position = failure.Position
		}
		j.finish(StatusFailed, m.now(), func(j *job) {
			j.errMessage = transcription.FailureMessage(err)
			j.errKind = kind
			j.failedAt = position
		})
		logger.Warn().Err(err).Str("kind", kind).Msg("Job failed")
		return
	}

	j.finish(StatusSucceeded, m.now(), func(j *job) {
		j.transcript = transcript
		j.progress = succeededMessage
	})
	logger.Info().Int("chars", len(transcript)).Msg("Job succeeded")
}

func (m *Manager) lookup(id string) (*job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (Snapshot, error) {
	j, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return j.snapshot(), nil
}

// Transcript returns the finished transcript together with the job snapshot.
func (m *Manager) Transcript(id string) (string, Snapshot, error) {
	j, err := m.lookup(id)
	if err != nil {
		return "", Snapshot{}, err
	}

	j.mu.Lock()
	transcript, status := j.transcript, j.status
	j.mu.Unlock()

	snap := j.snapshot()
	if status != StatusSucceeded {
		return "", snap, ErrNotReady
	}
	return transcript, snap, nil
}

// Subscribe streams the job's events. The channel is closed after the terminal
// event or when the returned stop func is called.
func (m *Manager) Subscribe(id string) (<-chan Event, func(), error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	ch, stop := j.subscribe()
	return ch, stop, nil
}

// Delete removes the job, canceling it if it is still running.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	j.cancel()
	return nil
}

// Len returns the number of registered jobs.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// Prune drops finished jobs older than the retention period and returns how many were removed.
func (m *Manager) Prune() int {
	cutoff := m.now().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, j := range m.jobs {
		j.mu.Lock()
		expired := j.status.Terminal() && j.finishedAt.Before(cutoff)
		j.mu.Unlock()
		if expired {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// RunJanitor prunes expired jobs every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(); n > 0 {
				m.logger.Debug().Int("removed", n).Msg("Pruned expired jobs")
			}
		}
	}
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, j := range m.jobs {
		j.cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
