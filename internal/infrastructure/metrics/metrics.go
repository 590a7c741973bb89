// Package metrics provides Prometheus metrics for the chat client.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// RepliesTotal counts assistant replies by the path that produced them.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Total number of assistant replies appended, by source",
		},
		[]string{"source"}, // live, request, content_fallback, error_message
	)

	// TransportRequests counts delivery attempts per transport and result.
	TransportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_transport_requests_total",
			Help: "Total number of message delivery attempts",
		},
		[]string{"transport", "result"},
	)

	// ReplyDuration tracks round trip time from send to reply.
	ReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_reply_duration_seconds",
			Help:    "Time between sending a message and receiving its reply",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"transport"},
	)

	// LiveConnectionOpen is 1 while the live channel is open.
	LiveConnectionOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_live_connection_open",
			Help: "Whether the live channel is currently open",
		},
	)

	// LiveStateTransitions tracks live channel state changes.
	LiveStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_live_state_transitions_total",
			Help: "Total number of live channel state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// ReconnectAttempts counts reconnect dials after the initial one.
	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_live_reconnect_attempts_total",
			Help: "Total number of live channel reconnect attempts",
		},
	)

	// HeartbeatsSent counts heartbeat frames written.
	HeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_live_heartbeats_total",
			Help: "Total number of heartbeat frames sent",
		},
	)

	// ProtocolViolations counts malformed inbound frames and responses.
	ProtocolViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_protocol_violations_total",
			Help: "Total number of malformed frames or responses ignored",
		},
		[]string{"transport"},
	)

	// StoreErrors counts non-fatal conversation store failures.
	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_store_errors_total",
			Help: "Total number of conversation store failures",
		},
	)
)

// RecordReply records an appended assistant reply.
func RecordReply(source string) {
	RepliesTotal.WithLabelValues(source).Inc()
	mirrorReply(source)
}

// RecordTransportResult records one delivery attempt and its latency.
func RecordTransportResult(transport, result string, elapsed time.Duration) {
	TransportRequests.WithLabelValues(transport, result).Inc()
	if result == "success" {
		ReplyDuration.WithLabelValues(transport).Observe(elapsed.Seconds())
	}
	mirrorTransportResult(transport, result, elapsed.Seconds())
}

// RecordStateTransition records a live channel state change.
func RecordStateTransition(fromState, toState string) {
	LiveStateTransitions.WithLabelValues(fromState, toState).Inc()
	if toState == "open" {
		LiveConnectionOpen.Set(1)
	} else if fromState == "open" {
		LiveConnectionOpen.Set(0)
	}
}

// RecordProtocolViolation records an ignored malformed frame.
func RecordProtocolViolation(transport string) {
	ProtocolViolations.WithLabelValues(transport).Inc()
	otelProtocolViolations.Add(context.Background(), 1, otelAttrs(attribute.String("transport", transport)))
}

// RecordReconnectAttempt records one reconnect dial after the initial one.
func RecordReconnectAttempt() {
	ReconnectAttempts.Inc()
	otelReconnects.Add(context.Background(), 1)
}

// RecordStoreError records a non-fatal conversation store failure.
func RecordStoreError() {
	StoreErrors.Inc()
	otelStoreErrors.Add(context.Background(), 1)
}

// Recorder adapts the package collectors to the orchestrator's recorder.
type Recorder struct{}

// RecordReply implements chat.Recorder.
func (Recorder) RecordReply(source string) {
	RecordReply(source)
}

// RecordTransportResult implements chat.Recorder.
func (Recorder) RecordTransportResult(transport, result string, elapsed time.Duration) {
	RecordTransportResult(transport, result, elapsed)
}

// RecordProtocolViolation implements chat.Recorder.
func (Recorder) RecordProtocolViolation(transport string) {
	RecordProtocolViolation(transport)
}

// RecordStoreError implements chat.Recorder.
func (Recorder) RecordStoreError() {
	RecordStoreError()
}
