package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps an otel tracer provider exporting to a Jaeger collector.
// A nil *Tracing is safe to use; spans become no-ops.
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracing builds the provider. collectorURL is the Jaeger collector
// endpoint, e.g. http://localhost:14268/api/traces; empty disables tracing.
func NewTracing(serviceName, collectorURL string) (*Tracing, error) {
	if collectorURL == "" {
		return nil, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorURL)))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(provider)

	return &Tracing{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// StartJobSpan opens a span for one Camunda job execution.
func (t *Tracing) StartJobSpan(ctx context.Context, taskType string, jobKey int64) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, taskType, trace.WithAttributes(
		attribute.String("camunda.task_type", taskType),
		attribute.Int64("camunda.job_key", jobKey),
	))
}

// Shutdown flushes pending spans.
func (t *Tracing) Shutdown() {
	if t == nil || t.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = t.provider.Shutdown(ctx)
}
