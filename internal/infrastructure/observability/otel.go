package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/woundsense/backend"

// Setup initializes OpenTelemetry tracing and metrics export over OTLP/gRPC
// and starts Go runtime instrumentation.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		_ = tracerProvider.Shutdown(ctx)
		return nil, err
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(15 * time.Second)); err != nil {
		LoggerFromContext(ctx).Warn().Err(err).Msg("runtime instrumentation not started")
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			meterProvider.Shutdown(ctx),
			tracerProvider.Shutdown(ctx),
		)
	}
	return shutdown, nil
}

// PipelineMetrics holds the assessment pipeline instruments.
type PipelineMetrics struct {
	StageDuration      metric.Float64Histogram
	AssessmentCount    metric.Int64Counter
	AssessmentFailures metric.Int64Counter
	FallbackCount      metric.Int64Counter
	AuditFailures      metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on the global meter
// provider. Instruments are no-ops until Setup installs an SDK provider.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter(instrumentationName)

	stageDuration, err := meter.Float64Histogram(
		"assessment.stage.duration",
		metric.WithDescription("Assessment pipeline stage duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	assessmentCount, err := meter.Int64Counter(
		"assessment.count",
		metric.WithDescription("Number of completed assessments"),
	)
	if err != nil {
		return nil, err
	}

	assessmentFailures, err := meter.Int64Counter(
		"assessment.failures",
		metric.WithDescription("Number of assessments that failed before producing a report"),
	)
	if err != nil {
		return nil, err
	}

	fallbackCount, err := meter.Int64Counter(
		"assessment.fallback.count",
		metric.WithDescription("Number of degraded-mode substitutions, by stage"),
	)
	if err != nil {
		return nil, err
	}

	auditFailures, err := meter.Int64Counter(
		"assessment.audit.failures",
		metric.WithDescription("Number of audit sink failures"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		StageDuration:      stageDuration,
		AssessmentCount:    assessmentCount,
		AssessmentFailures: assessmentFailures,
		FallbackCount:      fallbackCount,
		AuditFailures:      auditFailures,
	}, nil
}

// RecordStage records how long a pipeline stage took.
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("assessment.stage", stage),
		attribute.Bool("error", err != nil),
	}
	m.StageDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordFallback counts a degraded-mode substitution.
func (m *PipelineMetrics) RecordFallback(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.FallbackCount.Add(ctx, 1, metric.WithAttributes(attribute.String("assessment.stage", stage)))
}

// RecordOutcome counts a finished invocation.
func (m *PipelineMetrics) RecordOutcome(ctx context.Context, detectionSucceeded bool, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.AssessmentFailures.Add(ctx, 1)
		return
	}
	m.AssessmentCount.Add(ctx, 1, metric.WithAttributes(attribute.Bool("detection_succeeded", detectionSucceeded)))
}

// RecordAuditFailure counts an audit sink failure.
func (m *PipelineMetrics) RecordAuditFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.AuditFailures.Add(ctx, 1)
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordError records an error in the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}
