// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/aws-observability/aws-application-signals-go/common"
	"github.com/aws-observability/aws-application-signals-go/config"
	"github.com/aws-observability/aws-application-signals-go/internal/spanutil"
)

func propagatingTracer(t *testing.T, opts ...func(*AttributePropagatingSpanProcessorBuilder)) trace.Tracer {
	t.Helper()
	builder := NewAttributePropagatingSpanProcessorBuilder()
	for _, opt := range opts {
		opt(builder)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(builder.Build()))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("test")
}

func spanAttr(t *testing.T, span trace.Span, key string) (string, bool) {
	t.Helper()
	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	return spanutil.Attr(ro, attribute.Key(key))
}

func TestPropagatesServerOperationToChildren(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, server := tracer.Start(context.Background(), "GET /payment", trace.WithSpanKind(trace.SpanKindServer))
	ctx, client := tracer.Start(ctx, "call", trace.WithSpanKind(trace.SpanKindClient))
	_, nested := tracer.Start(ctx, "nested", trace.WithSpanKind(trace.SpanKindClient))

	_, ok := spanAttr(t, server, common.AWSLocalOperation)
	assert.False(t, ok, "server local root must not carry the propagated operation")

	op, ok := spanAttr(t, client, common.AWSLocalOperation)
	require.True(t, ok)
	assert.Equal(t, "GET /payment", op)

	// grandchild inherits through its client parent
	op, ok = spanAttr(t, nested, common.AWSLocalOperation)
	require.True(t, ok)
	assert.Equal(t, "GET /payment", op)
}

func TestNonServerLocalRootPropagatesOwnOperation(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, root := tracer.Start(context.Background(), "poll-queue", trace.WithSpanKind(trace.SpanKindConsumer))
	_, child := tracer.Start(ctx, "handle", trace.WithSpanKind(trace.SpanKindInternal))

	op, ok := spanAttr(t, root, common.AWSLocalOperation)
	require.True(t, ok)
	assert.Equal(t, "poll-queue", op)

	op, ok = spanAttr(t, child, common.AWSLocalOperation)
	require.True(t, ok)
	assert.Equal(t, "poll-queue", op)
}

func TestInternalParentAttributesCopied(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, parent := tracer.Start(context.Background(), "work", trace.WithSpanKind(trace.SpanKindInternal))
	parent.SetAttributes(
		attribute.String(common.AWSRemoteService, "OrderService"),
		attribute.String(common.AWSRemoteOperation, "PlaceOrder"),
	)
	_, child := tracer.Start(ctx, "child", trace.WithSpanKind(trace.SpanKindClient))

	service, ok := spanAttr(t, child, common.AWSRemoteService)
	require.True(t, ok)
	assert.Equal(t, "OrderService", service)
	operation, ok := spanAttr(t, child, common.AWSRemoteOperation)
	require.True(t, ok)
	assert.Equal(t, "PlaceOrder", operation)
}

func TestNonInternalParentAttributesNotCopied(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, parent := tracer.Start(context.Background(), "call", trace.WithSpanKind(trace.SpanKindClient))
	parent.SetAttributes(attribute.String(common.AWSRemoteService, "OrderService"))
	_, child := tracer.Start(ctx, "child", trace.WithSpanKind(trace.SpanKindClient))

	_, ok := spanAttr(t, child, common.AWSRemoteService)
	assert.False(t, ok)
}

func TestConsumerParentRecorded(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, _ := tracer.Start(context.Background(), "receive", trace.WithSpanKind(trace.SpanKindConsumer))
	_, child := tracer.Start(ctx, "process", trace.WithSpanKind(trace.SpanKindConsumer))

	kind, ok := spanAttr(t, child, common.AWSConsumerParentSpanKind)
	require.True(t, ok)
	assert.Equal(t, "CONSUMER", kind)
}

func TestConsumerParentNotRecordedForNonConsumerChild(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, _ := tracer.Start(context.Background(), "receive", trace.WithSpanKind(trace.SpanKindConsumer))
	_, child := tracer.Start(ctx, "side-call", trace.WithSpanKind(trace.SpanKindClient))

	_, ok := spanAttr(t, child, common.AWSConsumerParentSpanKind)
	assert.False(t, ok)
}

func TestAwsSDKDescendantMarking(t *testing.T) {
	tracer := propagatingTracer(t)
	ctx, _ := tracer.Start(context.Background(), "S3.GetObject", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.RPCSystemKey.String(spanutil.RPCSystemAWSSDK)))
	ctx, child := tracer.Start(ctx, "http-call", trace.WithSpanKind(trace.SpanKindClient))
	_, grandchild := tracer.Start(ctx, "dns-lookup", trace.WithSpanKind(trace.SpanKindInternal))

	v, ok := spanAttr(t, child, common.AWSSDKDescendant)
	require.True(t, ok)
	assert.Equal(t, "true", v)

	// the marker propagates transitively
	v, ok = spanAttr(t, grandchild, common.AWSSDKDescendant)
	require.True(t, ok)
	assert.Equal(t, "true", v)
}

func TestBuilderFromConfig(t *testing.T) {
	cfg := &config.Config{
		PropagationDataKey:    "test.operation",
		AttributesToPropagate: []string{"test.key"},
	}
	require.NoError(t, cfg.Validate())
	tracer := propagatingTracer(t, func(b *AttributePropagatingSpanProcessorBuilder) {
		b.WithConfig(cfg)
	})
	ctx, parent := tracer.Start(context.Background(), "work", trace.WithSpanKind(trace.SpanKindInternal))
	parent.SetAttributes(attribute.String("test.key", "inherited"))
	_, child := tracer.Start(ctx, "child", trace.WithSpanKind(trace.SpanKindClient))

	v, ok := spanAttr(t, child, "test.key")
	require.True(t, ok)
	assert.Equal(t, "inherited", v)
	op, ok := spanAttr(t, parent, "test.operation")
	require.True(t, ok)
	assert.Equal(t, "work", op)
}

func TestBuilderOverrides(t *testing.T) {
	const dataKey = "test.operation"
	tracer := propagatingTracer(t, func(b *AttributePropagatingSpanProcessorBuilder) {
		b.WithPropagationDataKey(dataKey).
			WithPropagationDataExtractor(func(span sdktrace.ReadOnlySpan) string {
				return "fixed"
			}).
			WithAttributesKeysToPropagate([]string{"test.key"})
	})
	ctx, parent := tracer.Start(context.Background(), "work", trace.WithSpanKind(trace.SpanKindInternal))
	parent.SetAttributes(attribute.String("test.key", "inherited"))
	_, child := tracer.Start(ctx, "child", trace.WithSpanKind(trace.SpanKindClient))

	op, ok := spanAttr(t, parent, dataKey)
	require.True(t, ok)
	assert.Equal(t, "fixed", op)

	v, ok := spanAttr(t, child, "test.key")
	require.True(t, ok)
	assert.Equal(t, "inherited", v)
	_, ok = spanAttr(t, child, common.AWSRemoteService)
	assert.False(t, ok, "default propagated keys must be replaced, not extended")
}
