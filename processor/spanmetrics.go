// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: MIT

package processor

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/aws-observability/aws-application-signals-go/generator"
	"github.com/aws-observability/aws-application-signals-go/internal/spanutil"
)

const (
	latencyMetric = "Latency"
	errorMetric   = "Error"
	faultMetric   = "Fault"
)

// spanMetricsProcessor records the latency, error and fault series for each
// attribute set the generator derives from a finished span. Instruments are
// created once; all per-span work happens in OnEnd.
type spanMetricsProcessor struct {
	latency metric.Float64Histogram
	errors  metric.Float64Histogram
	faults  metric.Float64Histogram
	gen     *generator.MetricAttributeGenerator
	logger  *zap.Logger
}

// NewSpanMetricsProcessor builds the processor recording to the given meter.
func NewSpanMetricsProcessor(meter metric.Meter, gen *generator.MetricAttributeGenerator, logger *zap.Logger) (sdktrace.SpanProcessor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	latency, err := meter.Float64Histogram(latencyMetric, metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	errors, err := meter.Float64Histogram(errorMetric)
	if err != nil {
		return nil, err
	}
	faults, err := meter.Float64Histogram(faultMetric)
	if err != nil {
		return nil, err
	}
	return &spanMetricsProcessor{
		latency: latency,
		errors:  errors,
		faults:  faults,
		gen:     gen,
		logger:  logger,
	}, nil
}

func (p *spanMetricsProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *spanMetricsProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	sets := p.gen.Generate(span, span.Resource())
	if len(sets) == 0 {
		return
	}
	latencyMs := float64(span.EndTime().Sub(span.StartTime())) / float64(time.Millisecond)
	errorValue, faultValue := classifySpanOutcome(span)
	ctx := context.Background()
	for _, set := range sets {
		opt := metric.WithAttributeSet(set)
		p.latency.Record(ctx, latencyMs, opt)
		p.errors.Record(ctx, errorValue, opt)
		p.faults.Record(ctx, faultValue, opt)
	}
}

func (p *spanMetricsProcessor) Shutdown(context.Context) error { return nil }

func (p *spanMetricsProcessor) ForceFlush(context.Context) error { return nil }

// classifySpanOutcome buckets a span as an error (caller's fault, 4xx) or a
// fault (callee's fault, 5xx or an error status without an HTTP code). Both
// series always receive a value so rates stay computable.
func classifySpanOutcome(span sdktrace.ReadOnlySpan) (errorValue, faultValue float64) {
	if code, ok := httpStatusCode(span); ok {
		switch {
		case code >= 400 && code < 500:
			return 1, 0
		case code >= 500 && code < 600:
			return 0, 1
		}
		return 0, 0
	}
	if span.Status().Code == codes.Error {
		return 0, 1
	}
	return 0, 0
}

func httpStatusCode(span sdktrace.ReadOnlySpan) (int, bool) {
	for _, key := range []attribute.Key{semconv.HTTPStatusCodeKey, attribute.Key("http.response.status_code")} {
		if v, ok := spanutil.AttrValue(span, key); ok {
			if v.Type() == attribute.INT64 {
				return int(v.AsInt64()), true
			}
			if code, err := strconv.Atoi(v.Emit()); err == nil {
				return code, true
			}
		}
	}
	return 0, false
}
