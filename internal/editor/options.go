package editor

import (
	"time"

	shErrors "github.com/streamhook/streamhook/pkg/streamhook/v1/errors"
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
)

// Option configures an Editor at creation.
type Option func(*Editor) error

// WithOwner registers the collaborator notified after each commit.
func WithOwner(owner Owner) Option {
	return func(e *Editor) error {
		if owner == nil {
			return shErrors.NewConfigError("owner cannot be nil", nil)
		}
		e.owner = owner
		return nil
	}
}

// WithConfirmer sets the yes/no decision maker used by Delete. Without one,
// Delete refuses every request.
func WithConfirmer(c Confirmer) Option {
	return func(e *Editor) error {
		if c == nil {
			return shErrors.NewConfigError("confirmer cannot be nil", nil)
		}
		e.confirmer = c
		return nil
	}
}

// WithEventBus routes editor events to bus instead of discarding them.
func WithEventBus(bus events.Bus) Option {
	return func(e *Editor) error {
		if bus == nil {
			return shErrors.NewConfigError("event bus cannot be nil", nil)
		}
		e.bus = bus
		return nil
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) error {
		if now == nil {
			return shErrors.NewConfigError("clock cannot be nil", nil)
		}
		e.now = now
		return nil
	}
}
