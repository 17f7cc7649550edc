package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors groups the streamhook metrics fed by the event listener.
type Collectors struct {
	// EditorEvents counts editor and migration events by type.
	EditorEvents *prometheus.CounterVec
	// ValidationFailures counts saves rejected by validation.
	ValidationFailures prometheus.Counter
	// MigratedCommands counts commands produced by prep-command migration,
	// labelled by group ("startup" or "cleanup").
	MigratedCommands *prometheus.CounterVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		EditorEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamhook",
			Subsystem: "editor",
			Name:      "events_total",
			Help:      "Event action authoring events by type.",
		}, []string{"type"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamhook",
			Name:      "validation_failures_total",
			Help:      "Event action saves rejected by validation.",
		}),
		MigratedCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamhook",
			Name:      "migrated_commands_total",
			Help:      "Commands generated from legacy prep commands.",
		}, []string{"group"}),
	}
	for _, col := range []prometheus.Collector{c.EditorEvents, c.ValidationFailures, c.MigratedCommands} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register streamhook collector: %w", err)
		}
	}
	return c, nil
}
