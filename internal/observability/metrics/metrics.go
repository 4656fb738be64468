// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audio_transcription"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal   prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	// Ingestion metrics
	FragmentsReceived  prometheus.Counter
	AudioBytesReceived prometheus.Counter
	ChunksSkipped      prometheus.Counter

	// Decode metrics
	DecodeAttempts *prometheus.CounterVec
	DecodeFailures *prometheus.CounterVec

	// Engine metrics
	EngineLatency *prometheus.HistogramVec
	EngineErrors  *prometheus.CounterVec

	// Transcription metrics
	TranscriptionsPartial prometheus.Counter
	TranscriptionsFinal   prometheus.Counter
	FinalizeErrors        prometheus.Counter

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of streaming sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active streaming sessions",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of streaming sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		FragmentsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_received_total",
			Help:      "Total number of audio fragments received",
		}),
		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio payload bytes received",
		}),
		ChunksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_skipped_total",
			Help:      "Fragments below the minimum size threshold that were not processed",
		}),

		DecodeAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_attempts_total",
			Help:      "Decode strategy attempts by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Decode failures by error kind",
		}, []string{"kind"}),

		EngineLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_latency_seconds",
			Help:      "Transcription engine call latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider", "mode"}),
		EngineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Transcription engine call errors",
		}, []string{"provider", "mode"}),

		TranscriptionsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_partial_total",
			Help:      "Total number of partial transcriptions emitted",
		}),
		TranscriptionsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_final_total",
			Help:      "Total number of final transcriptions emitted",
		}),
		FinalizeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_errors_total",
			Help:      "Total number of final passes that surfaced an error",
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new streaming session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a streaming session ending.
func (m *Metrics) RecordSessionEnd(durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordFragment records an accepted audio fragment.
func (m *Metrics) RecordFragment(bytes int) {
	m.FragmentsReceived.Inc()
	m.AudioBytesReceived.Add(float64(bytes))
}

// RecordChunkSkipped records a fragment skipped by the size guard.
func (m *Metrics) RecordChunkSkipped() {
	m.ChunksSkipped.Inc()
}

// RecordDecodeAttempt records one strategy attempt in the decode chain.
func (m *Metrics) RecordDecodeAttempt(strategy string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.DecodeAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordDecodeFailure records a decode failure by structured kind.
func (m *Metrics) RecordDecodeFailure(kind string) {
	m.DecodeFailures.WithLabelValues(kind).Inc()
}

// RecordEngineCall records the outcome of one transcription engine call.
func (m *Metrics) RecordEngineCall(provider, mode string, err error, latencySeconds float64) {
	m.EngineLatency.WithLabelValues(provider, mode).Observe(latencySeconds)
	if err != nil {
		m.EngineErrors.WithLabelValues(provider, mode).Inc()
	}
}

// RecordPartialTranscription records a partial transcription emitted.
func (m *Metrics) RecordPartialTranscription() {
	m.TranscriptionsPartial.Inc()
}

// RecordFinalTranscription records a final transcription emitted.
func (m *Metrics) RecordFinalTranscription() {
	m.TranscriptionsFinal.Inc()
}

// RecordFinalizeError records a final pass that surfaced an error.
func (m *Metrics) RecordFinalizeError() {
	m.FinalizeErrors.Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
