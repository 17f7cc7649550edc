package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"

	internalevents "github.com/streamhook/streamhook/internal/events"
	"github.com/streamhook/streamhook/internal/metrics"
	"github.com/streamhook/streamhook/internal/tracing"
)

// telemetry feeds editor and migration events into Prometheus collectors for
// the lifetime of one command.
type telemetry struct {
	bus      *internalevents.ChannelEventBus
	registry *metrics.PrometheusRegistryProvider
	done     chan struct{}
	log      shlog.Logger
}

func startTelemetry(log shlog.Logger) (*telemetry, error) {
	provider := metrics.NewPrometheusRegistryProvider()
	collectors, err := metrics.NewCollectors(provider.Registry())
	if err != nil {
		return nil, err
	}

	bus := internalevents.NewChannelEventBus(DefaultEventBusSize, log)
	listener := internalevents.NewMetricsEventListener(bus, collectors, log)
	t := &telemetry{bus: bus, registry: provider, done: make(chan struct{}), log: log}
	go func() {
		defer close(t.done)
		listener.Start(context.Background())
	}()
	return t, nil
}

// stop drains the bus and logs the collected counters at debug level.
func (t *telemetry) stop() {
	t.bus.Close()
	<-t.done

	families, err := t.registry.Registry().Gather()
	if err != nil {
		t.log.Warnf("Failed to gather metrics: %v", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			t.log.Debugf("Metric %s{%s} = %g", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
}

func (c *cli) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.GetTracer(tracing.TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func checkOutputFormat(format string, allowTable bool) error {
	switch format {
	case "yaml", "json":
		return nil
	case "table":
		if allowTable {
			return nil
		}
	}
	return usageErrorf("unsupported output format '%s'", format)
}

func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return usageErrorf("unsupported output format '%s'", format)
	}
}
