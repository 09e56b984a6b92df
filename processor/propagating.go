// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

// Package processor contains the span processors that feed Application
// Signals: one propagates attributes from ancestors to descendants while
// spans are being created, the other turns finished spans into metrics.
package processor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aws-observability/aws-application-signals-go/common"
	"github.com/aws-observability/aws-application-signals-go/config"
	"github.com/aws-observability/aws-application-signals-go/internal/spanutil"
)

// PropagationDataExtractor computes the value to propagate down a local
// span subtree from the span that roots it.
type PropagationDataExtractor func(span sdktrace.ReadOnlySpan) string

// AttributePropagatingSpanProcessorBuilder configures and builds the
// propagating processor. The zero value of the builder is not usable;
// obtain one from NewAttributePropagatingSpanProcessorBuilder, which
// seeds the defaults.
type AttributePropagatingSpanProcessorBuilder struct {
	extractor          PropagationDataExtractor
	propagationDataKey string
	attributesKeys     []string
	logger             *zap.Logger
}

func NewAttributePropagatingSpanProcessorBuilder() *AttributePropagatingSpanProcessorBuilder {
	return &AttributePropagatingSpanProcessorBuilder{
		extractor:          spanutil.IngressOperation,
		propagationDataKey: common.AWSLocalOperation,
		attributesKeys:     []string{common.AWSRemoteService, common.AWSRemoteOperation},
	}
}

// WithPropagationDataExtractor replaces the function that derives the
// propagated value from the local-root span.
func (b *AttributePropagatingSpanProcessorBuilder) WithPropagationDataExtractor(extractor PropagationDataExtractor) *AttributePropagatingSpanProcessorBuilder {
	if extractor != nil {
		b.extractor = extractor
	}
	return b
}

// WithPropagationDataKey replaces the attribute key the propagated value
// is stored under.
func (b *AttributePropagatingSpanProcessorBuilder) WithPropagationDataKey(key string) *AttributePropagatingSpanProcessorBuilder {
	if key != "" {
		b.propagationDataKey = key
	}
	return b
}

// WithAttributesKeysToPropagate replaces the set of attribute keys copied
// verbatim from an internal parent onto its children.
func (b *AttributePropagatingSpanProcessorBuilder) WithAttributesKeysToPropagate(keys []string) *AttributePropagatingSpanProcessorBuilder {
	b.attributesKeys = append([]string(nil), keys...)
	return b
}

// WithConfig applies the settings from a validated Config.
func (b *AttributePropagatingSpanProcessorBuilder) WithConfig(cfg *config.Config) *AttributePropagatingSpanProcessorBuilder {
	return b.WithPropagationDataKey(cfg.PropagationDataKey).
		WithAttributesKeysToPropagate(cfg.AttributesToPropagate)
}

func (b *AttributePropagatingSpanProcessorBuilder) WithLogger(logger *zap.Logger) *AttributePropagatingSpanProcessorBuilder {
	b.logger = logger
	return b
}

func (b *AttributePropagatingSpanProcessorBuilder) Build() sdktrace.SpanProcessor {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &attributePropagatingSpanProcessor{
		extractor:          b.extractor,
		propagationDataKey: attribute.Key(b.propagationDataKey),
		attributesKeys:     append([]string(nil), b.attributesKeys...),
		logger:             logger,
	}
}

// attributePropagatingSpanProcessor stamps each starting span with data
// from its local ancestry: the local operation computed at the local root,
// any propagated keys from an internal parent, consumer-parent linkage,
// and the AWS SDK descendant marker. All work happens in OnStart, while
// the parent span is still available in the starting context.
type attributePropagatingSpanProcessor struct {
	extractor          PropagationDataExtractor
	propagationDataKey attribute.Key
	attributesKeys     []string
	logger             *zap.Logger
}

var _ sdktrace.SpanProcessor = (*attributePropagatingSpanProcessor)(nil)

func (p *attributePropagatingSpanProcessor) OnStart(parentCtx context.Context, span sdktrace.ReadWriteSpan) {
	parent, hasParent := trace.SpanFromContext(parentCtx).(sdktrace.ReadOnlySpan)
	if hasParent {
		// Immediate children of an AWS SDK span, and all their descendants,
		// are internal to the SDK call and must not be mistaken for
		// independent dependencies.
		if spanutil.IsAwsSDKSpan(parent) || spanutil.HasAttr(parent, common.AWSSDKDescendant) {
			span.SetAttributes(attribute.String(common.AWSSDKDescendant, "true"))
		}
		if parent.SpanKind() == trace.SpanKindInternal {
			for _, key := range p.attributesKeys {
				if value, ok := spanutil.Attr(parent, attribute.Key(key)); ok {
					span.SetAttributes(attribute.String(key, value))
				}
			}
		}
		if parent.SpanKind() == trace.SpanKindConsumer && span.SpanKind() == trace.SpanKindConsumer &&
			!spanutil.HasAttr(span, common.AWSConsumerParentSpanKind) {
			span.SetAttributes(attribute.String(common.AWSConsumerParentSpanKind, spanutil.SpanKindString(parent)))
		}
	}

	var propagationData string
	switch {
	case spanutil.IsLocalRoot(span):
		// Server local roots compute their operation at metric generation
		// time; anything else roots a subtree whose egress operation is
		// derived from the root span itself.
		if span.SpanKind() != trace.SpanKindServer {
			propagationData = p.extractor(span)
		}
	case hasParent && parent.SpanKind() == trace.SpanKindServer:
		propagationData = p.extractor(parent)
	case hasParent:
		propagationData, _ = spanutil.Attr(parent, p.propagationDataKey)
	}
	if propagationData != "" {
		span.SetAttributes(attribute.String(string(p.propagationDataKey), propagationData))
	}
}

func (p *attributePropagatingSpanProcessor) OnEnd(sdktrace.ReadOnlySpan) {}

func (p *attributePropagatingSpanProcessor) Shutdown(context.Context) error { return nil }

func (p *attributePropagatingSpanProcessor) ForceFlush(context.Context) error { return nil }
