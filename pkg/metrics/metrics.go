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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
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

	// LLMRequestDuration tracks text-generation call latency.
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Text-generation request duration",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"provider", "operation", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// TextGenFallbacks counts canned or offline content served instead of
	// text-generation output.
	TextGenFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "textgen_fallbacks_total",
			Help: "Text-generation calls replaced by fallback content",
		},
		[]string{"operation"},
	)

	// SessionsStarted tracks onboarding sessions opened.
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_sessions_started_total",
			Help: "Onboarding sessions started",
		},
		[]string{"returning"},
	)

	// StateTransitions tracks committed conversation state changes.
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_state_transitions_total",
			Help: "Committed onboarding state transitions",
		},
		[]string{"from", "to"},
	)

	// ProfileSaves tracks persistence calls by kind (full, patch) and status.
	ProfileSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_saves_total",
			Help: "Profile persistence calls",
		},
		[]string{"kind", "status"},
	)

	// CodenameOutcomes tracks codename uniqueness checks.
	CodenameOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codename_outcomes_total",
			Help: "Codename generation outcomes (unique, collision, suffixed, reserve_conflict)",
		},
		[]string{"outcome"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// JournalPublishes tracks NATS journal publishes.
	JournalPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_publishes_total",
			Help: "Events published to the NATS journal",
		},
		[]string{"type", "status"},
	)

	// NotificationsTotal tracks confirmation notifications triggered.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Confirmation notifications by channel and status",
		},
		[]string{"channel", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one text-generation call.
func RecordLLMCall(provider, operation, status string, duration float64) {
	LLMRequestDuration.WithLabelValues(provider, operation, status).Observe(duration)
}

// RecordLLMTokens records token usage reported by a provider.
func RecordLLMTokens(model string, tokensIn, tokensOut int) {
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
