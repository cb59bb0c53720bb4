package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Ramsey-B/sage/pkg/tracing"
)

const sampleTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func TestNewIncomingMessage_LiftsTraceHeaders(t *testing.T) {
	msg := kafka.Message{
		Key:       []byte("evt_1"),
		Value:     []byte(`{}`),
		Topic:     "sensor-readings",
		Partition: 2,
		Offset:    41,
		Headers: []kafka.Header{
			{Key: "traceparent", Value: []byte(sampleTraceParent)},
			{Key: "tracestate", Value: []byte("vendor=abc")},
			{Key: "loc_id", Value: []byte("loc_1")},
		},
	}

	incoming := NewIncomingMessage(msg)

	assert.Equal(t, "evt_1", incoming.Key)
	assert.Equal(t, "sensor-readings", incoming.Topic)
	assert.Equal(t, sampleTraceParent, incoming.TraceParent)
	assert.Equal(t, "vendor=abc", incoming.TraceState)
	assert.Equal(t, "loc_1", incoming.Headers["loc_id"])
}

func TestNewIncomingMessage_NoTraceHeaders(t *testing.T) {
	incoming := NewIncomingMessage(kafka.Message{Key: []byte("evt_2")})

	assert.Empty(t, incoming.TraceParent)
	assert.Empty(t, incoming.TraceState)
}

func TestAppendTraceHeaders_PropagatesActiveTrace(t *testing.T) {
	tracing.SetTracer(noop.NewTracerProvider().Tracer("test"))
	t.Cleanup(func() { tracing.SetTracer(nil) })

	ctx := tracing.ExtractTraceContext(context.Background(), sampleTraceParent, "")

	msg := kafka.Message{}
	appendTraceHeaders(ctx, &msg)

	incoming := NewIncomingMessage(msg)
	assert.Equal(t, sampleTraceParent, incoming.TraceParent)
}

func TestAppendTraceHeaders_NoActiveTrace(t *testing.T) {
	msg := kafka.Message{}
	appendTraceHeaders(context.Background(), &msg)

	assert.Empty(t, msg.Headers)
}
