package events

import (
	"context"

	"github.com/streamhook/streamhook/internal/metrics"
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// MetricsEventListener consumes a ChannelEventBus and updates the streamhook
// Prometheus collectors.
type MetricsEventListener struct {
	bus        *ChannelEventBus
	log        shlog.Logger
	collectors *metrics.Collectors
}

// NewMetricsEventListener creates a listener. All dependencies are required.
func NewMetricsEventListener(bus *ChannelEventBus, collectors *metrics.Collectors, log shlog.Logger) *MetricsEventListener {
	if bus == nil || collectors == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Collectors, and Logger")
	}
	return &MetricsEventListener{
		bus:        bus,
		log:        log.With("component", "MetricsEventListener"),
		collectors: collectors,
	}
}

// Start consumes events until the bus is closed or ctx is done.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	l.collectors.EditorEvents.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case events.ValidationFailed:
		l.collectors.ValidationFailures.Inc()
	case events.PrepCommandsMigrated:
		for _, group := range []string{"startup", "cleanup"} {
			if n, ok := event.Payload[group].(int); ok && n > 0 {
				l.collectors.MigratedCommands.WithLabelValues(group).Add(float64(n))
			}
		}
	}
}
