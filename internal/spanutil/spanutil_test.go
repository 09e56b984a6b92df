// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package spanutil

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
)

func startSpan(t *testing.T, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) sdktrace.ReadOnlySpan {
	t.Helper()
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	_, span := tracer.Start(context.Background(), name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	return ro
}

func startChildSpan(t *testing.T, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) sdktrace.ReadOnlySpan {
	t.Helper()
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	ctx, _ := tracer.Start(context.Background(), "parent")
	_, span := tracer.Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)
	return ro
}

func TestIsLocalRoot(t *testing.T) {
	assert.True(t, IsLocalRoot(startSpan(t, "root", trace.SpanKindServer)))
	assert.False(t, IsLocalRoot(startChildSpan(t, "child", trace.SpanKindClient)))
}

func TestIsLocalRootWithRemoteParent(t *testing.T) {
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample())).Tracer("test")
	remote := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
		Remote:  true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), remote)
	_, span := tracer.Start(ctx, "server", trace.WithSpanKind(trace.SpanKindServer))
	assert.True(t, IsLocalRoot(span.(sdktrace.ReadOnlySpan)))
}

func TestIsAwsSDKSpan(t *testing.T) {
	assert.True(t, IsAwsSDKSpan(startSpan(t, "S3.GetObject", trace.SpanKindClient,
		semconv.RPCSystemKey.String(RPCSystemAWSSDK))))
	assert.False(t, IsAwsSDKSpan(startSpan(t, "grpc", trace.SpanKindClient,
		semconv.RPCSystemKey.String("grpc"))))
	assert.False(t, IsAwsSDKSpan(startSpan(t, "plain", trace.SpanKindClient)))
}

func TestIsDBSpan(t *testing.T) {
	assert.True(t, IsDBSpan(startSpan(t, "q", trace.SpanKindClient, semconv.DBSystemMySQL)))
	assert.True(t, IsDBSpan(startSpan(t, "q", trace.SpanKindClient, semconv.DBOperation("SELECT"))))
	assert.True(t, IsDBSpan(startSpan(t, "q", trace.SpanKindClient, semconv.DBStatement("SELECT 1"))))
	assert.False(t, IsDBSpan(startSpan(t, "q", trace.SpanKindClient)))
}

func TestShouldGenerateServiceMetricAttributes(t *testing.T) {
	assert.True(t, ShouldGenerateServiceMetricAttributes(startSpan(t, "s", trace.SpanKindServer)))
	assert.True(t, ShouldGenerateServiceMetricAttributes(startChildSpan(t, "s", trace.SpanKindServer)))
	assert.True(t, ShouldGenerateServiceMetricAttributes(startSpan(t, "s", trace.SpanKindInternal)))
	assert.False(t, ShouldGenerateServiceMetricAttributes(startChildSpan(t, "s", trace.SpanKindInternal)))
	assert.False(t, ShouldGenerateServiceMetricAttributes(startSpan(t, "s", trace.SpanKindClient)))
}

func TestShouldGenerateDependencyMetricAttributes(t *testing.T) {
	assert.True(t, ShouldGenerateDependencyMetricAttributes(startSpan(t, "s", trace.SpanKindClient)))
	assert.True(t, ShouldGenerateDependencyMetricAttributes(startSpan(t, "s", trace.SpanKindProducer)))
	assert.True(t, ShouldGenerateDependencyMetricAttributes(startSpan(t, "s", trace.SpanKindConsumer)))
	assert.False(t, ShouldGenerateDependencyMetricAttributes(startSpan(t, "s", trace.SpanKindServer)))
	assert.False(t, ShouldGenerateDependencyMetricAttributes(startSpan(t, "s", trace.SpanKindInternal)))
}

func TestConsumerProcessSuppression(t *testing.T) {
	suppressed := startChildSpan(t, "process", trace.SpanKindConsumer,
		semconv.MessagingOperationKey.String(MessagingOperationProcess),
		attribute.String(common.AWSConsumerParentSpanKind, "CONSUMER"))
	assert.True(t, IsConsumerProcessSpanWithConsumerParent(suppressed))
	assert.False(t, ShouldGenerateDependencyMetricAttributes(suppressed))

	// parent was not a consumer
	notSuppressed := startChildSpan(t, "process", trace.SpanKindConsumer,
		semconv.MessagingOperationKey.String(MessagingOperationProcess))
	assert.False(t, IsConsumerProcessSpanWithConsumerParent(notSuppressed))
	assert.True(t, ShouldGenerateDependencyMetricAttributes(notSuppressed))

	// receive, not process
	receive := startChildSpan(t, "receive", trace.SpanKindConsumer,
		semconv.MessagingOperationKey.String("receive"),
		attribute.String(common.AWSConsumerParentSpanKind, "CONSUMER"))
	assert.False(t, IsConsumerProcessSpanWithConsumerParent(receive))
}

func TestIngressOperationUsesSpanName(t *testing.T) {
	span := startSpan(t, "GET /payment", trace.SpanKindServer)
	assert.Equal(t, "GET /payment", IngressOperation(span))
}

func TestIngressOperationRejectsBareMethod(t *testing.T) {
	span := startSpan(t, "GET", trace.SpanKindServer,
		semconv.HTTPMethod("GET"),
		semconv.HTTPTarget("/payment/123"))
	assert.Equal(t, "GET /payment", IngressOperation(span))
}

func TestIngressOperationTargetOnly(t *testing.T) {
	span := startSpan(t, "", trace.SpanKindServer, semconv.HTTPTarget("/owners/1/pets"))
	assert.Equal(t, "/owners", IngressOperation(span))
}

func TestIngressOperationLocalRootFallback(t *testing.T) {
	span := startSpan(t, "", trace.SpanKindServer)
	assert.Equal(t, common.InternalOperation, IngressOperation(span))
}

func TestIngressOperationNonRootFallback(t *testing.T) {
	span := startChildSpan(t, "", trace.SpanKindServer)
	assert.Equal(t, common.UnknownOperation, IngressOperation(span))
}

func TestEgressOperation(t *testing.T) {
	span := startSpan(t, "client", trace.SpanKindClient,
		attribute.String(common.AWSLocalOperation, "GET /api"))
	assert.Equal(t, "GET /api", EgressOperation(span))

	assert.Equal(t, common.UnknownOperation, EgressOperation(startSpan(t, "client", trace.SpanKindClient)))
}

func TestExtractAPIPath(t *testing.T) {
	assert.Equal(t, "/", ExtractAPIPath(""))
	assert.Equal(t, "/", ExtractAPIPath("/"))
	assert.Equal(t, "/payment", ExtractAPIPath("/payment"))
	assert.Equal(t, "/payment", ExtractAPIPath("/payment/123"))
}

func TestSpanKindString(t *testing.T) {
	assert.Equal(t, "CLIENT", SpanKindString(startSpan(t, "s", trace.SpanKindClient)))
	assert.Equal(t, "CONSUMER", SpanKindString(startSpan(t, "s", trace.SpanKindConsumer)))
}
