// Package tracing wires OpenTelemetry into streamhook: an OTLP provider
// configured from the environment and helpers for span attributes.
package tracing

import (
	"strings"

	"github.com/streamhook/streamhook/internal/actions"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of streamhook spans.
const TracerName = "github.com/streamhook/streamhook"

const redacted = "[REDACTED]"

// ActionAttributes describes an action without its command text, which may
// hold credentials.
func ActionAttributes(prefix string, a actions.EventAction) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(prefix+".name", a.Name),
		attribute.String(prefix+".startup_stage", string(a.Action.StartupStage)),
		attribute.String(prefix+".shutdown_stage", string(a.Action.ShutdownStage)),
		attribute.Int(prefix+".startup_commands", a.Action.StartupCommands.Len()),
		attribute.Int(prefix+".cleanup_commands", a.Action.CleanupCommands.Len()),
	}
}

// RedactEnv returns a copy of KEY=value pairs with the value replaced for
// keys containing any of keywords (lowercase).
func RedactEnv(environ []string, keywords []string) []string {
	out := make([]string, len(environ))
	for i, kv := range environ {
		key, _, found := strings.Cut(kv, "=")
		out[i] = kv
		if !found {
			continue
		}
		lower := strings.ToLower(key)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out[i] = key + "=" + redacted
				break
			}
		}
	}
	return out
}

// RecordError marks span as failed with err. Nil errors and non-recording
// spans are ignored.
func RecordError(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
