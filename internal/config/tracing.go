package config

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "reflector"

// NewTracerProvider builds the span pipeline selected by OTEL_TRACES_EXPORTER.
// "none" (or empty) returns a nil provider and tracing stays on the global no-op.
// "stdout" writes finished spans as JSON to out.
// The caller installs the provider and shuts it down on exit.
func NewTracerProvider(exporter string, out io.Writer) (*sdktrace.TracerProvider, error) {
	switch exporter {
	case "", "none":
		return nil, nil
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}
		return sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(resource.NewSchemaless(
				attribute.String("service.name", serviceName),
			)),
		), nil
	default:
		return nil, fmt.Errorf("unsupported OTEL_TRACES_EXPORTER %q", exporter)
	}
}
