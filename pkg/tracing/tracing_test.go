package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestExtractTraceContext_CarriesRemoteSpan(t *testing.T) {
	ctx := ExtractTraceContext(
		context.Background(),
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		"vendor=abc",
	)

	sc := trace.SpanContextFromContext(ctx)
	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
	assert.Equal(t, "00f067aa0ba902b7", sc.SpanID().String())
	assert.Equal(t, "vendor=abc", sc.TraceState().String())
}

func TestExtractTraceContext_EmptyParentIsNoOp(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, ExtractTraceContext(ctx, "", ""))

	sc := trace.SpanContextFromContext(ExtractTraceContext(ctx, "", "vendor=abc"))
	assert.False(t, sc.IsValid())
}
