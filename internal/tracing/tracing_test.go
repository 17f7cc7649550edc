package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/streamhook/streamhook/internal/actions"
	"github.com/streamhook/streamhook/internal/logger"
	"github.com/streamhook/streamhook/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProviderFromEnv_NoOpByDefault(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "")

	p := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	assert.True(t, p.IsEffectivelyNoOp())
	assert.NotNil(t, p.GetTracer(TracerName))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderFromEnv_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "TRUE")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	p := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	assert.True(t, p.IsEffectivelyNoOp())
}

func TestNewProviderFromEnv_UnsupportedProtocol(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")

	p := NewProviderFromEnv(context.Background(), logger.NewDiscardLogger())
	assert.True(t, p.IsEffectivelyNoOp())
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "x=y"}, parseHeaders(" a=1 , b=x=y,broken,=v"))
	assert.Empty(t, parseHeaders(""))

	def := 10 * time.Second
	assert.Equal(t, 1500*time.Millisecond, parseTimeout("1500", def))
	assert.Equal(t, 2*time.Second, parseTimeout("2s", def))
	assert.Equal(t, def, parseTimeout("-5", def))
	assert.Equal(t, def, parseTimeout("soon", def))
	assert.Equal(t, def, parseTimeout("", def))

	assert.True(t, isInsecure("", " True "))
	assert.False(t, isInsecure("false", ""))
}

func TestRedactEnv(t *testing.T) {
	in := []string{"PATH=/bin", "API_TOKEN=abc", "DB_PASSWORD=p=w", "NOEQUALS"}
	out := RedactEnv(in, []string{"token", "password"})
	assert.Equal(t, []string{"PATH=/bin", "API_TOKEN=[REDACTED]", "DB_PASSWORD=[REDACTED]", "NOEQUALS"}, out)
	assert.Equal(t, "API_TOKEN=abc", in[1], "input is not modified")
}

func TestRecordErrorAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	a := actions.NewDefault()
	a.Name = "Mute"
	a.Action.StartupStage = stage.PreStreamStart

	_, span := tp.Tracer(TracerName).Start(context.Background(), "save")
	span.SetAttributes(ActionAttributes("action", a)...)
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "Mute", attrs["action.name"])
	assert.Equal(t, "PRE_STREAM_START", attrs["action.startup_stage"])
	assert.Equal(t, "1", attrs["action.startup_commands"])
}
