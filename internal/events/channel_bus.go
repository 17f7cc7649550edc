package events

import (
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
	shlog "github.com/streamhook/streamhook/pkg/streamhook/v1/log"
)

// ChannelEventBus implements events.Bus with a buffered channel. Emit never
// blocks: when the buffer is full the event is dropped and a warning logged.
type ChannelEventBus struct {
	channel chan events.Event
	log     shlog.Logger
}

// NewChannelEventBus creates a bus with the given buffer size (100 when
// non-positive). Panics if log is nil.
func NewChannelEventBus(bufferSize int, log shlog.Logger) *ChannelEventBus {
	const defaultBufferSize = 100
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelEventBus requires a non-nil logger")
	}

	bus := &ChannelEventBus{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelEventBus"),
	}
	bus.log.Debugf("ChannelEventBus initialized with buffer size %d", bufferSize)
	return bus
}

// Emit sends event without blocking.
func (c *ChannelEventBus) Emit(event events.Event) {
	select {
	case c.channel <- event:
		c.log.Debugf("Emitted event type '%s'", event.Type)
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
}

// GetChannel returns the read side of the bus for in-process consumers.
func (c *ChannelEventBus) GetChannel() <-chan events.Event {
	return c.channel
}

// Close closes the channel; consumers ranging over GetChannel will stop.
func (c *ChannelEventBus) Close() {
	c.log.Debugf("Closing ChannelEventBus channel.")
	close(c.channel)
}

var _ events.Bus = (*ChannelEventBus)(nil)
