// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package generator derives Application Signals metric attributes from
// finished spans. Each span yields a service attribute set (incoming
// traffic), a dependency attribute set (outgoing traffic), both, or
// neither, depending on classification.
package generator

import (
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/aws-observability/aws-application-signals-go/common"
	"github.com/aws-observability/aws-application-signals-go/config"
	"github.com/aws-observability/aws-application-signals-go/internal/spanutil"
)

const (
	serviceNameUnknownPrefix = "unknown_service"

	lambdaInvokeService = "Lambda"
	lambdaInvokeMethod  = "Invoke"

	remoteEnvironmentLambdaPrefix = "lambda:"

	graphqlService = "graphql"
)

// Renames applied to the service identifiers reported by the AWS SDKs, so
// that both SDK major versions map onto one canonical name.
var normalizedServiceNames = map[string]string{
	"AmazonDynamoDBv2":      "AWS::DynamoDB",
	"DynamoDb":              "AWS::DynamoDB",
	"AmazonKinesis":         "AWS::Kinesis",
	"Kinesis":               "AWS::Kinesis",
	"Amazon S3":             "AWS::S3",
	"S3":                    "AWS::S3",
	"AmazonSQS":             "AWS::SQS",
	"Sqs":                   "AWS::SQS",
	"AmazonSNS":             "AWS::SNS",
	"Sns":                   "AWS::SNS",
	"SNS":                   "AWS::SNS",
	"Secrets Manager":       "AWS::SecretsManager",
	"SecretsManager":        "AWS::SecretsManager",
	"SFN":                   "AWS::StepFunctions",
	"Sfn":                   "AWS::StepFunctions",
	"Bedrock":               "AWS::Bedrock",
	"Bedrock Agent":         "AWS::Bedrock",
	"Bedrock Agent Runtime": "AWS::Bedrock",
	"Bedrock Runtime":       "AWS::BedrockRuntime",
}

// MetricAttributeGenerator is safe for concurrent use; it keeps no state
// between calls.
type MetricAttributeGenerator struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *MetricAttributeGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricAttributeGenerator{logger: logger}
}

// Generate produces the metric attribute sets for a finished span. The
// returned map has zero, one or two entries and never contains empty-valued
// attributes.
func (g *MetricAttributeGenerator) Generate(span sdktrace.ReadOnlySpan, res *resource.Resource) map[common.MetricType]attribute.Set {
	out := make(map[common.MetricType]attribute.Set, 2)
	suppressed := spanutil.IsConsumerProcessSpanWithConsumerParent(span)
	localRoot := spanutil.IsLocalRoot(span)
	if suppressed && !localRoot {
		return out
	}
	// A local-root consumer processing span is both the entry point of the
	// trace in this process and an edge to the messaging dependency, so it
	// contributes to both perspectives.
	forceBoth := suppressed && localRoot
	if forceBoth || spanutil.ShouldGenerateServiceMetricAttributes(span) {
		out[common.ServiceMetric] = g.serviceMetricAttributes(span, res)
	}
	if forceBoth || spanutil.ShouldGenerateDependencyMetricAttributes(span) {
		out[common.DependencyMetric] = g.dependencyMetricAttributes(span, res)
	}
	return out
}

func (g *MetricAttributeGenerator) serviceMetricAttributes(span sdktrace.ReadOnlySpan, res *resource.Resource) attribute.Set {
	attrs := []attribute.KeyValue{
		attribute.String(common.AWSLocalService, g.localService(span, res)),
		attribute.String(common.AWSLocalOperation, spanutil.IngressOperation(span)),
		attribute.String(common.AWSSpanKind, serviceSpanKind(span)),
	}
	return attribute.NewSet(attrs...)
}

func (g *MetricAttributeGenerator) dependencyMetricAttributes(span sdktrace.ReadOnlySpan, res *resource.Resource) attribute.Set {
	attrs := []attribute.KeyValue{
		attribute.String(common.AWSLocalService, g.localService(span, res)),
		attribute.String(common.AWSLocalOperation, spanutil.EgressOperation(span)),
		attribute.String(common.AWSSpanKind, spanutil.SpanKindString(span)),
	}
	attrs = append(attrs, g.remoteServiceAndOperation(span)...)
	if resourceAttrs, ok := g.remoteResource(span); ok {
		attrs = append(attrs, resourceAttrs...)
		attrs = append(attrs, g.remoteAccountAndRegion(span)...)
	}
	attrs = append(attrs, remoteEnvironment(span)...)
	if user, ok := spanutil.Attr(span, semconv.DBUserKey); ok && spanutil.IsDBSpan(span) {
		attrs = append(attrs, attribute.String(common.AWSRemoteDBUser, user))
	}
	return attribute.NewSet(attrs...)
}

// The service perspective tags local roots with a dedicated kind so the
// service map can distinguish trace entry points from mid-trace servers.
func serviceSpanKind(span sdktrace.ReadOnlySpan) string {
	if spanutil.IsLocalRoot(span) {
		return common.LocalRoot
	}
	return spanutil.SpanKindString(span)
}

func (g *MetricAttributeGenerator) localService(span sdktrace.ReadOnlySpan, res *resource.Resource) string {
	if res != nil {
		if v, ok := res.Set().Value(semconv.ServiceNameKey); ok {
			name := v.Emit()
			if name != "" && !strings.HasPrefix(name, serviceNameUnknownPrefix) {
				return name
			}
		}
	}
	g.logger.Debug("service name not found in resource, falling back",
		zap.String("fallback", common.UnknownService),
		zap.String("traceId", span.SpanContext().TraceID().String()),
		zap.String("spanId", span.SpanContext().SpanID().String()))
	return common.UnknownService
}

// remoteServiceAndOperation resolves the call target from the highest
// priority attribute group present on the span. The first group with any of
// its keys present wins, even when the values it provides are incomplete.
func (g *MetricAttributeGenerator) remoteServiceAndOperation(span sdktrace.ReadOnlySpan) []attribute.KeyValue {
	service := common.UnknownRemoteService
	operation := common.UnknownRemoteOperation

	switch {
	case spanutil.HasAttr(span, common.AWSRemoteService) || spanutil.HasAttr(span, common.AWSRemoteOperation):
		service = attrOr(span, common.AWSRemoteService, service)
		operation = attrOr(span, common.AWSRemoteOperation, operation)
	case spanutil.HasAttr(span, semconv.RPCSystemKey) || spanutil.HasAttr(span, semconv.RPCServiceKey) || spanutil.HasAttr(span, semconv.RPCMethodKey):
		service = g.normalizeRemoteServiceName(span, attrOr(span, semconv.RPCServiceKey, service))
		operation = attrOr(span, semconv.RPCMethodKey, operation)
	case spanutil.HasAttr(span, common.AWSServiceLegacy) || spanutil.HasAttr(span, common.AWSOperationLegacy):
		service = g.normalizeRemoteServiceName(span, attrOr(span, common.AWSServiceLegacy, service))
		operation = attrOr(span, common.AWSOperationLegacy, operation)
	case spanutil.IsDBSpan(span):
		service = attrOr(span, semconv.DBSystemKey, service)
		if op, ok := spanutil.Attr(span, semconv.DBOperationKey); ok {
			operation = op
		} else if stmt, ok := spanutil.Attr(span, semconv.DBStatementKey); ok {
			operation = extractDBStatementKeyword(stmt)
		}
	case spanutil.HasAttr(span, semconv.FaaSInvokedNameKey) || spanutil.HasAttr(span, semconv.FaaSTriggerKey):
		service = attrOr(span, semconv.FaaSInvokedNameKey, service)
		operation = attrOr(span, semconv.FaaSTriggerKey, operation)
	case spanutil.HasAttr(span, semconv.MessagingSystemKey) || spanutil.HasAttr(span, semconv.MessagingOperationKey):
		service = attrOr(span, semconv.MessagingSystemKey, service)
		operation = attrOr(span, semconv.MessagingOperationKey, operation)
	case spanutil.HasAttr(span, semconv.GraphqlOperationTypeKey):
		service = graphqlService
		operation, _ = spanutil.Attr(span, semconv.GraphqlOperationTypeKey)
	}

	if service == common.UnknownRemoteService {
		service = generateRemoteService(span)
	}
	if operation == common.UnknownRemoteOperation {
		operation = generateRemoteOperation(span)
	}
	// Explicit peer.service wins over everything except a customer-supplied
	// aws.remote.service.
	if peer, ok := spanutil.Attr(span, semconv.PeerServiceKey); ok && !spanutil.HasAttr(span, common.AWSRemoteService) {
		service = peer
	}

	return []attribute.KeyValue{
		attribute.String(common.AWSRemoteService, service),
		attribute.String(common.AWSRemoteOperation, operation),
	}
}

// normalizeRemoteServiceName maps an SDK-reported service identifier onto
// the canonical AWS resource taxonomy. A Lambda Invoke is modeled as a call
// to the target function, a service node of its own, not to the Lambda
// control plane.
func (g *MetricAttributeGenerator) normalizeRemoteServiceName(span sdktrace.ReadOnlySpan, serviceName string) string {
	if serviceName == lambdaInvokeService || serviceName == "AWSLambda" {
		if isLambdaInvokeOperation(span) {
			name, ok := spanutil.Attr(span, common.AWSLambdaFunctionName)
			if !ok || name == "" {
				return common.UnknownRemoteService
			}
			return name
		}
		return "AWS::Lambda"
	}
	if normalized, ok := normalizedServiceNames[serviceName]; ok {
		return normalized
	}
	if spanutil.IsAwsSDKSpan(span) {
		return "AWS::" + serviceName
	}
	return serviceName
}

func isLambdaInvokeOperation(span sdktrace.ReadOnlySpan) bool {
	service, _ := spanutil.Attr(span, semconv.RPCServiceKey)
	method, _ := spanutil.Attr(span, semconv.RPCMethodKey)
	return service == lambdaInvokeService && method == lambdaInvokeMethod
}

// remoteEnvironment is only meaningful for calls into another Lambda
// function, where the target environment is ambient process configuration.
func remoteEnvironment(span sdktrace.ReadOnlySpan) []attribute.KeyValue {
	if !spanutil.IsAwsSDKSpan(span) || !isLambdaInvokeOperation(span) {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(common.AWSRemoteEnvironment, remoteEnvironmentLambdaPrefix+config.RemoteEnvironment()),
	}
}

func generateRemoteService(span sdktrace.ReadOnlySpan) string {
	if peer, ok := spanutil.Attr(span, semconv.NetPeerNameKey); ok {
		return withPort(span, peer, semconv.NetPeerPortKey)
	}
	if addr, ok := spanutil.Attr(span, semconv.NetSockPeerAddrKey); ok {
		return withPort(span, addr, semconv.NetSockPeerPortKey)
	}
	if rawURL, ok := spanutil.Attr(span, semconv.HTTPURLKey); ok {
		if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
			return parsed.Host
		}
	}
	return common.UnknownRemoteService
}

func withPort(span sdktrace.ReadOnlySpan, host string, portKey attribute.Key) string {
	if port, ok := spanutil.Attr(span, portKey); ok && port != "" {
		return host + ":" + port
	}
	return host
}

func generateRemoteOperation(span sdktrace.ReadOnlySpan) string {
	operation := common.UnknownRemoteOperation
	if rawURL, ok := spanutil.Attr(span, semconv.HTTPURLKey); ok {
		if parsed, err := url.Parse(rawURL); err == nil {
			operation = spanutil.ExtractAPIPath(parsed.Path)
		}
	}
	if method, ok := spanutil.Attr(span, semconv.HTTPMethodKey); ok && method != "" {
		operation = method + " " + operation
	}
	return operation
}

func attrOr(span sdktrace.ReadOnlySpan, key attribute.Key, fallback string) string {
	if v, ok := spanutil.Attr(span, key); ok && v != "" {
		return v
	}
	return fallback
}
