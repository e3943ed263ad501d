// Package telemetry wires the optional OTLP trace pipeline. Tracing is
// opt-in: without a configured collector endpoint the service runs with a
// noop shutdown and no exporter goroutines.
package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	exporterInitTimeout = 5 * time.Second
	exportTimeout       = 3 * time.Second
)

func noopShutdown(context.Context) error { return nil }

// Init installs the global trace provider for serviceName, exporting to
// the OTLP/HTTP collector at endpoint. An empty endpoint disables tracing.
// A returned error means the exporter could not be built; the shutdown
// func is still safe to call, so callers can log and keep starting.
func Init(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return noopShutdown, nil
	}

	exporter, err := newTraceExporter(ctx, endpoint)
	if err != nil {
		return noopShutdown, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return noopShutdown, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return provider.Shutdown, nil
}

// newTraceExporter builds the OTLP/HTTP span exporter. The collector may
// be unreachable at startup, so retries are disabled and failures are
// left to the caller.
func newTraceExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	initCtx, cancel := context.WithTimeout(ctx, exporterInitTimeout)
	defer cancel()

	return otlptracehttp.New(initCtx,
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{Enabled: false}),
	)
}
