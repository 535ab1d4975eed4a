// Package telemetry bootstraps the OpenTelemetry tracer provider every
// other package's package-scoped tracer (eventstore.Tracer(), and the
// projector and sqlstore spans) attaches to, grounded on the teacher's
// cmd/api wiring of go.opentelemetry.io/otel/exporters/otlp/otlptrace over
// otlptracehttp.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config controls exporter endpoint and service identity.
type Config struct {
	// ServiceName is attached to every span as the service.name resource
	// attribute.
	ServiceName string
	// Endpoint is the OTLP/HTTP collector endpoint (host:port, no scheme).
	// Empty uses otlptracehttp's own default (localhost:4318).
	Endpoint string
	// Insecure disables TLS for the exporter connection (local collectors).
	Insecure bool
}

// Shutdown flushes and stops the tracer provider; callers defer it from
// main.
type Shutdown func(ctx context.Context) error

// Setup installs an OTLP/HTTP span exporter as the global tracer provider
// and returns a Shutdown to call on exit. Every package-level tracer in this
// module (eventstore.Tracer(), the projector's and sqlstore's) is obtained
// via otel.Tracer(name), so installing the global provider here is
// sufficient to route their spans.
func Setup(ctx context.Context, cfg Config) (Shutdown, error) {
	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	client := otlptracehttp.NewClient(opts...)
	exporter, err := otlptrace.New(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "eventcore"
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}
