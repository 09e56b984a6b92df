// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package spanutil classifies finished spans and derives the logical
// operation names used as metric dimensions. Everything here is a pure
// read over the span snapshot.
package spanutil

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/aws-observability/aws-application-signals-go/common"
)

const (
	// RPCSystemAWSSDK is the rpc.system value AWS SDK instrumentation sets.
	RPCSystemAWSSDK = "aws-api"

	// MessagingOperationProcess marks a consumer span that processes a
	// previously received message.
	MessagingOperationProcess = "process"
)

var httpMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
	"HEAD": {}, "OPTIONS": {}, "CONNECT": {}, "TRACE": {},
}

// Attr returns the span attribute under key rendered as text. Integer
// values render in decimal.
func Attr(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

// AttrValue returns the raw span attribute value under key.
func AttrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// HasAttr reports whether the span carries an attribute under key.
func HasAttr(span sdktrace.ReadOnlySpan, key attribute.Key) bool {
	_, ok := AttrValue(span, key)
	return ok
}

// IsLocalRoot reports whether the span is the first one recorded in this
// process for its trace. A local root may still have a remote parent.
func IsLocalRoot(span sdktrace.ReadOnlySpan) bool {
	parent := span.Parent()
	return !parent.IsValid() || parent.IsRemote()
}

// IsAwsSDKSpan reports whether the span was produced by AWS SDK
// instrumentation.
func IsAwsSDKSpan(span sdktrace.ReadOnlySpan) bool {
	system, _ := Attr(span, semconv.RPCSystemKey)
	return system == RPCSystemAWSSDK
}

// IsDBSpan reports whether the span represents a database call.
func IsDBSpan(span sdktrace.ReadOnlySpan) bool {
	return HasAttr(span, semconv.DBSystemKey) ||
		HasAttr(span, semconv.DBOperationKey) ||
		HasAttr(span, semconv.DBStatementKey)
}

// IsConsumerProcessSpan reports whether the span is a Consumer span
// processing a received message.
func IsConsumerProcessSpan(span sdktrace.ReadOnlySpan) bool {
	if span.SpanKind() != trace.SpanKindConsumer {
		return false
	}
	op, _ := Attr(span, semconv.MessagingOperationKey)
	return op == MessagingOperationProcess
}

// IsConsumerProcessSpanWithConsumerParent reports whether the span is a
// consumer processing span whose immediate parent was also a Consumer span.
// Such spans double-count the work already measured on the parent and are
// suppressed unless they are the local root.
func IsConsumerProcessSpanWithConsumerParent(span sdktrace.ReadOnlySpan) bool {
	if !IsConsumerProcessSpan(span) {
		return false
	}
	parentKind, _ := Attr(span, common.AWSConsumerParentSpanKind)
	return parentKind == strings.ToUpper(trace.SpanKindConsumer.String())
}

// ShouldGenerateServiceMetricAttributes reports whether the span represents
// incoming traffic. Server spans always do; Internal spans only when they
// are the trace's local root.
func ShouldGenerateServiceMetricAttributes(span sdktrace.ReadOnlySpan) bool {
	if span.SpanKind() == trace.SpanKindServer {
		return true
	}
	return IsLocalRoot(span) && span.SpanKind() == trace.SpanKindInternal
}

// ShouldGenerateDependencyMetricAttributes reports whether the span
// represents outgoing traffic. Consumer processing spans with a Consumer
// parent are suppressed here; the generator re-admits them when they are
// the local root.
func ShouldGenerateDependencyMetricAttributes(span sdktrace.ReadOnlySpan) bool {
	switch span.SpanKind() {
	case trace.SpanKindClient, trace.SpanKindProducer:
		return true
	case trace.SpanKindConsumer:
		return !IsConsumerProcessSpanWithConsumerParent(span)
	default:
		return false
	}
}

// IngressOperation returns the operation name for the incoming-traffic
// perspective. The span name is used when it is a usable operation name;
// otherwise the operation is rebuilt from HTTP attributes. A local root
// that yields nothing is reported as InternalOperation.
func IngressOperation(span sdktrace.ReadOnlySpan) string {
	operation := span.Name()
	if isValidOperation(span, operation) {
		return operation
	}
	operation = generateIngressOperation(span)
	if operation == common.UnknownOperation && IsLocalRoot(span) {
		return common.InternalOperation
	}
	return operation
}

// EgressOperation returns the operation name for the outgoing-traffic
// perspective, previously planted by the attribute-propagating processor.
func EgressOperation(span sdktrace.ReadOnlySpan) string {
	if operation, ok := Attr(span, common.AWSLocalOperation); ok && operation != "" {
		return operation
	}
	return common.UnknownOperation
}

// SpanKindString returns the uppercased span kind, e.g. "CLIENT".
func SpanKindString(span sdktrace.ReadOnlySpan) string {
	return strings.ToUpper(span.SpanKind().String())
}

// A usable operation name is non-empty, not the InternalOperation sentinel,
// and not a bare HTTP method (some HTTP servers name spans after the method
// only, which has no routing value).
func isValidOperation(span sdktrace.ReadOnlySpan, operation string) bool {
	if operation == "" || operation == common.InternalOperation {
		return false
	}
	if _, ok := httpMethods[operation]; ok {
		return false
	}
	if method, ok := Attr(span, semconv.HTTPMethodKey); ok && operation == method {
		return false
	}
	return true
}

func generateIngressOperation(span sdktrace.ReadOnlySpan) string {
	target, ok := Attr(span, semconv.HTTPTargetKey)
	if !ok {
		return common.UnknownOperation
	}
	operation := ExtractAPIPath(target)
	if method, ok := Attr(span, semconv.HTTPMethodKey); ok && method != "" {
		operation = method + " " + operation
	}
	return operation
}

// ExtractAPIPath reduces a URL path to its first segment, the granularity
// used for operation dimensions.
func ExtractAPIPath(path string) string {
	if path == "" {
		return "/"
	}
	parts := strings.Split(path, "/")
	if len(parts) > 1 && parts[1] != "" {
		return "/" + parts[1]
	}
	return "/"
}
