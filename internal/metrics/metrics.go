// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// LLMStreamDuration tracks chat completion stream duration.
	LLMStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_stream_duration_seconds",
			Help:    "LLM streaming response duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90},
		},
		[]string{"provider", "status"},
	)

	// ToolCallsTotal counts executed tool calls.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_calls_total",
			Help: "Tool calls executed by the chat orchestrator",
		},
		[]string{"tool", "status"},
	)

	// SSEConnectionsActive tracks open chat streams.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// IngestChunksTotal counts chunks seen by ingestion, by result.
	IngestChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_chunks_total",
			Help: "Chunks processed by the ingestion pipeline",
		},
		[]string{"result"},
	)

	// TrainingJobsTotal counts finished training jobs.
	TrainingJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_jobs_total",
			Help: "Training jobs by final status",
		},
		[]string{"status"},
	)

	// ConversationSaveFailures counts turns that could not be persisted.
	ConversationSaveFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_save_failures_total",
			Help: "Conversation turns lost to persistence errors",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMStream records one completion stream.
func RecordLLMStream(provider, status string, duration float64) {
	LLMStreamDuration.WithLabelValues(provider, status).Observe(duration)
}

func RecordToolCall(tool, status string) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
}

func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
