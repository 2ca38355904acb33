package jobs

import (
	"sync"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// EventType tags a progress event sent to subscribers.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
)

// Event is a single update streamed to subscribers.
type Event struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	Transcript string    `json:"transcript,omitempty"`
}

// Snapshot is a point-in-time copy of a job, safe to serialize.
type Snapshot struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	MIMEType      string     `json:"mime_type"`
	Size          int64      `json:"size"`
	Status        Status     `json:"status"`
	Progress      string     `json:"progress,omitempty"`
	Error         string     `json:"error,omitempty"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	FailedSegment int        `json:"failed_segment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// subscriberBuffer bounds how far a slow subscriber may lag before progress is dropped.
const subscriberBuffer = 16

type job struct {
	mu sync.Mutex

	id         string
	filename   string
	mimeType   string
	size       int64
	status     Status
	progress   string
	transcript string
	errMessage string
	errKind    string
	failedAt   int
	createdAt  time.Time
	finishedAt time.Time

	cancel  func()
	cleanup func()

	subscribers map[int]chan Event
	nextSubID   int
}

func (j *job) snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Snapshot{
		ID:            j.id,
		Filename:      j.filename,
		MIMEType:      j.mimeType,
		Size:          j.size,
		Status:        j.status,
		Progress:      j.progress,
		Error:         j.errMessage,
		ErrorKind:     j.errKind,
		FailedSegment: j.failedAt,
		CreatedAt:     j.createdAt,
	}
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		s.FinishedAt = &finished
	}
	return s
}

// terminalEvent must be called with j.mu held.
func (j *job) terminalEvent() Event {
	if j.status == StatusSucceeded {
		return Event{Type: EventSucceeded, Message: j.progress, Transcript: j.transcript}
	}
	return Event{Type: EventFailed, Message: j.errMessage}
}

// publish delivers a progress event without ever blocking the sender.
func (j *job) publish(message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.progress = message
	ev := Event{Type: EventProgress, Message: message}
	for _, ch := range j.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// finish records the outcome and hands the terminal event to every subscriber.
// A full subscriber loses its oldest pending progress event instead.
func (j *job) finish(status Status, now time.Time, apply func(*job)) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status = status
	j.finishedAt = now
	apply(j)

	ev := j.terminalEvent()
	for id, ch := range j.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
		close(ch)
		delete(j.subscribers, id)
	}
}

func (j *job) subscribe() (<-chan Event, func()) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if j.status.Terminal() {
		ch <- j.terminalEvent()
		close(ch)
		return ch, func() {}
	}
	if j.progress != "" {
		ch <- Event{Type: EventProgress, Message: j.progress}
	}

	id := j.nextSubID
	j.nextSubID++
	if j.subscribers == nil {
		j.subscribers = make(map[int]chan Event)
	}
	j.subscribers[id] = ch

	return ch, func() {
		j.mu.Lock()
		defer j.mu.Unlock()
		if sub, ok := j.subscribers[id]; ok {
			delete(j.subscribers, id)
			close(sub)
		}
	}
}
