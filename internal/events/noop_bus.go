package events

import "github.com/streamhook/streamhook/pkg/streamhook/v1/events"

// NoOpEventBus discards every event. The editor falls back to it when no bus
// is configured so emit calls never need nil checks.
type NoOpEventBus struct{}

// NewNoOpEventBus creates a new instance of the NoOpEventBus.
func NewNoOpEventBus() events.Bus {
	return &NoOpEventBus{}
}

// Emit implements events.Bus.
func (n *NoOpEventBus) Emit(event events.Event) {}

var _ events.Bus = (*NoOpEventBus)(nil)
