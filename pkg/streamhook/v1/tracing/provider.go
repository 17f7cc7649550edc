package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TracerProvider defines the interface for accessing streamhook's tracer provider.
// It lets library users plug streamhook spans into their own OpenTelemetry setup.
type TracerProvider interface {
	// GetTracer returns a Tracer instance with the specified name and options.
	GetTracer(name string, opts ...trace.TracerOption) trace.Tracer

	// Shutdown flushes buffered spans. The context should carry a deadline.
	Shutdown(ctx context.Context) error
}
