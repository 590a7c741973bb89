package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// The same measurements are mirrored to the global OpenTelemetry meter so
// they reach the OTLP exporter when observability.Setup enables it. Before
// Setup runs the global meter forwards to a no-op provider.
var meter = otel.Meter("github.com/janhq/jan-chat-client/internal/infrastructure/metrics")

var (
	otelReplies, _ = meter.Int64Counter(
		"chat.replies",
		metric.WithDescription("Assistant replies appended, by source"),
	)
	otelTransportRequests, _ = meter.Int64Counter(
		"chat.transport.requests",
		metric.WithDescription("Message delivery attempts"),
	)
	otelReplyDuration, _ = meter.Float64Histogram(
		"chat.reply.duration",
		metric.WithDescription("Time between sending a message and receiving its reply"),
		metric.WithUnit("s"),
	)
	otelReconnects, _ = meter.Int64Counter(
		"chat.live.reconnect_attempts",
		metric.WithDescription("Live channel reconnect attempts"),
	)
	otelProtocolViolations, _ = meter.Int64Counter(
		"chat.protocol_violations",
		metric.WithDescription("Malformed frames or responses ignored"),
	)
	otelStoreErrors, _ = meter.Int64Counter(
		"chat.store.errors",
		metric.WithDescription("Conversation store failures"),
	)
)

func otelAttrs(kv ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(kv...)
}

func mirrorReply(source string) {
	otelReplies.Add(context.Background(), 1, otelAttrs(attribute.String("source", source)))
}

func mirrorTransportResult(transport, result string, seconds float64) {
	ctx := context.Background()
	otelTransportRequests.Add(ctx, 1, otelAttrs(
		attribute.String("transport", transport),
		attribute.String("result", result),
	))
	if result == "success" {
		otelReplyDuration.Record(ctx, seconds, otelAttrs(attribute.String("transport", transport)))
	}
}
