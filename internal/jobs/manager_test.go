package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexiqai/transcript-gateway/internal/transcription"
)

type stubTranscriber struct {
	release  chan struct{}
	progress []string
	result   string
	err      error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, src *transcription.Source, mimeType string, progress transcription.ProgressFunc) (string, error) {
	for _, msg := range s.progress {
		progress(msg)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", &transcription.Error{Kind: transcription.KindCanceled, Message: "Транскрибация отменена.", Err: ctx.Err()}
		}
	}
	return s.result, s.err
}

func newTestManager(t *testing.T, tr Transcriber, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	m := NewManager(tr, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func testInput(cleanup func()) Input {
	return Input{
		Filename: "meeting.m4a",
		MIMEType: "audio/mp4",
		Source:   transcription.NewBytesSource([]byte("audio")),
		Cleanup:  cleanup,
	}
}

func waitForStatus(t *testing.T, m *Manager, id string, want Status) Snapshot {
	t.Helper()
	var snap Snapshot
	require.Eventually(t, func() bool {
		var err error
		snap, err = m.Get(id)
		return err == nil && snap.Status == want
	}, 2*time.Second, 5*time.Millisecond, "job never reached %s", want)
	return snap
}

func TestManager_SuccessfulJob(t *testing.T) {
	var cleanups atomic.Int32
	tr := &stubTranscriber{result: "**Спикер 1:** Привет."}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(func() { cleanups.Add(1) }))
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, int64(5), snap.Size)
	assert.Equal(t, "meeting.m4a", snap.Filename)

	done := waitForStatus(t, m, snap.ID, StatusSucceeded)
	require.NotNil(t, done.FinishedAt)
	assert.Empty(t, done.Error)

	transcript, _, err := m.Transcript(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "**Спикер 1:** Привет.", transcript)

	require.Eventually(t, func() bool { return cleanups.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestManager_FailedJob(t *testing.T) {
	tr := &stubTranscriber{err: &transcription.Error{
		Kind:     transcription.KindSegmentTranscription,
		Position: 5,
		Message:  "Ошибка при обработке части 5. Попробуйте снова.",
		Err:      errors.New("remote unavailable"),
	}}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)

	failed := waitForStatus(t, m, snap.ID, StatusFailed)
	assert.Equal(t, "Ошибка при обработке части 5. Попробуйте снова.", failed.Error)
	assert.Equal(t, "segment_transcription", failed.ErrorKind)
	assert.Equal(t, 5, failed.FailedSegment)

	_, _, err = m.Transcript(snap.ID)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestManager_UntypedFailureUsesGenericMessage(t *testing.T) {
	m := newTestManager(t, &stubTranscriber{err: errors.New("boom")})

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)

	failed := waitForStatus(t, m, snap.ID, StatusFailed)
	assert.Equal(t, "Произошла ошибка при обработке.", failed.Error)
	assert.Equal(t, "unknown", failed.ErrorKind)
}

func TestManager_SubscribeStreamsProgressThenResult(t *testing.T) {
	tr := &stubTranscriber{
		release:  make(chan struct{}),
		progress: []string{"Подготовка файла: разбиение на 1 частей...", "Обработка частей 1-1 из 1..."},
		result:   "текст",
	}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)
	waitForStatus(t, m, snap.ID, StatusTranscribing)

	events, stop, err := m.Subscribe(snap.ID)
	require.NoError(t, err)
	defer stop()
	close(tr.release)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	require.NotEmpty(t, got)

	last := got[len(got)-1]
	assert.Equal(t, EventSucceeded, last.Type)
	assert.Equal(t, "текст", last.Transcript)
	for _, ev := range got[:len(got)-1] {
		assert.Equal(t, EventProgress, ev.Type)
	}
}

func TestManager_SubscribeAfterFinish(t *testing.T) {
	m := newTestManager(t, &stubTranscriber{result: "готово"})

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)
	waitForStatus(t, m, snap.ID, StatusSucceeded)

	events, stop, err := m.Subscribe(snap.ID)
	require.NoError(t, err)
	defer stop()

	ev, ok := <-events
	require.True(t, ok)
	assert.Equal(t, EventSucceeded, ev.Type)
	assert.Equal(t, "готово", ev.Transcript)

	_, ok = <-events
	assert.False(t, ok, "channel must be closed after the terminal event")
}

func TestManager_SubscribeUnknownJob(t *testing.T) {
	m := newTestManager(t, &stubTranscriber{})
	_, _, err := m.Subscribe("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_SlowSubscriberNeverBlocksJob(t *testing.T) {
	progress := make([]string, subscriberBuffer*4)
	for i := range progress {
		progress[i] = fmt.Sprintf("step %d", i)
	}
	tr := &stubTranscriber{release: make(chan struct{}), progress: progress, result: "итог"}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)

	// nothing reads until the job has finished
	events, stop, err := m.Subscribe(snap.ID)
	require.NoError(t, err)
	defer stop()
	close(tr.release)

	waitForStatus(t, m, snap.ID, StatusSucceeded)

	var last Event
	count := 0
	for ev := range events {
		last = ev
		count++
	}
	assert.LessOrEqual(t, count, subscriberBuffer)
	assert.Equal(t, EventSucceeded, last.Type)
	assert.Equal(t, "итог", last.Transcript)
}

func TestManager_StopUnsubscribes(t *testing.T) {
	tr := &stubTranscriber{release: make(chan struct{})}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)

	events, stop, err := m.Subscribe(snap.ID)
	require.NoError(t, err)
	stop()
	stop()

	for range events {
	}
	close(tr.release)
	waitForStatus(t, m, snap.ID, StatusSucceeded)
}

func TestManager_DeleteCancelsRunningJob(t *testing.T) {
	var cleanups atomic.Int32
	tr := &stubTranscriber{release: make(chan struct{})}
	m := newTestManager(t, tr)

	snap, err := m.Submit(testInput(func() { cleanups.Add(1) }))
	require.NoError(t, err)
	waitForStatus(t, m, snap.ID, StatusTranscribing)

	require.NoError(t, m.Delete(snap.ID))
	_, err = m.Get(snap.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(snap.ID), ErrNotFound)

	require.Eventually(t, func() bool { return cleanups.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestManager_PruneRemovesExpiredFinishedJobs(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	running := &stubTranscriber{release: make(chan struct{})}
	m := newTestManager(t, running, WithRetention(time.Minute), WithClock(clock))

	finishedJob, err := m.Submit(testInput(nil))
	require.NoError(t, err)
	close(running.release)
	waitForStatus(t, m, finishedJob.ID, StatusSucceeded)

	running.release = make(chan struct{})
	active, err := m.Submit(testInput(nil))
	require.NoError(t, err)
	waitForStatus(t, m, active.ID, StatusTranscribing)

	assert.Equal(t, 0, m.Prune(), "nothing has expired yet")

	advance(2 * time.Minute)
	assert.Equal(t, 1, m.Prune())
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(finishedJob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err, "running jobs are never pruned")

	close(running.release)
}

func TestManager_ShutdownCancelsAndRejects(t *testing.T) {
	tr := &stubTranscriber{release: make(chan struct{})}
	m := NewManager(tr, WithLogger(zerolog.Nop()))

	snap, err := m.Submit(testInput(nil))
	require.NoError(t, err)
	waitForStatus(t, m, snap.ID, StatusTranscribing)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	failed, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "canceled", failed.ErrorKind)

	_, err = m.Submit(testInput(nil))
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestManager_SubmitRejectsNilSource(t *testing.T) {
	m := newTestManager(t, &stubTranscriber{})
	_, err := m.Submit(Input{Filename: "x.mp3"})
	assert.Error(t, err)
}
