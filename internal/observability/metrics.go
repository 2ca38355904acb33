package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transcription metrics
	activeTranscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transcript_gateway_active_transcriptions",
		Help: "Number of orchestrations currently running",
	})

	transcriptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_transcriptions_total",
		Help: "Total number of orchestrations by outcome",
	}, []string{"status"})

	transcriptionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transcript_gateway_transcription_duration_seconds",
		Help:    "Wall time of a full orchestration in seconds",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
	})

	// Segment metrics
	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_segments_total",
		Help: "Total number of segment transcription calls by outcome",
	}, []string{"provider", "status"})

	segmentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transcript_gateway_segment_latency_seconds",
		Help:    "Remote transcription latency per segment in seconds",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"provider"})

	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_gateway_batches_total",
		Help: "Total number of segment batches dispatched",
	})

	// Upload metrics
	uploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transcript_gateway_upload_bytes_total",
		Help: "Total bytes received through uploads",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transcript_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transcript_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})
)

// TranscriptionMetrics tracks metrics for a single orchestration call
type TranscriptionMetrics struct {
	startTime time.Time
}

// StartTranscription records the start of an orchestration
func StartTranscription() *TranscriptionMetrics {
	activeTranscriptions.Inc()
	return &TranscriptionMetrics{startTime: time.Now()}
}

// Finish records the outcome of the orchestration; status is "success" or an error kind.
func (m *TranscriptionMetrics) Finish(status string) {
	activeTranscriptions.Dec()
	transcriptionsTotal.WithLabelValues(status).Inc()
	transcriptionDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordSegment records one remote segment call
func RecordSegment(provider string, latency time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	segmentsTotal.WithLabelValues(provider, status).Inc()
	segmentLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordBatch records a dispatched batch
func RecordBatch() {
	batchesTotal.Inc()
}

// RecordUploadBytes records bytes received from a client upload
func RecordUploadBytes(n int64) {
	uploadBytes.Add(float64(n))
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
