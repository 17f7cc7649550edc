package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	internalevents "github.com/streamhook/streamhook/internal/events"
	"github.com/streamhook/streamhook/internal/logger"
	"github.com/streamhook/streamhook/internal/metrics"
	"github.com/streamhook/streamhook/pkg/streamhook/v1/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMetricsEventListener_CountsEvents drives the listener until the bus is
// closed and checks every collector.
func TestMetricsEventListener_CountsEvents(t *testing.T) {
	log := logger.NewDiscardLogger()
	provider := metrics.NewPrometheusRegistryProvider()
	collectors, err := metrics.NewCollectors(provider.Registry())
	require.NoError(t, err)

	bus := internalevents.NewChannelEventBus(10, log)
	listener := internalevents.NewMetricsEventListener(bus, collectors, log)

	bus.Emit(events.Event{Type: events.ActionCreated})
	bus.Emit(events.Event{Type: events.ValidationFailed})
	bus.Emit(events.Event{Type: events.ValidationFailed})
	bus.Emit(events.Event{Type: events.PrepCommandsMigrated, Payload: map[string]interface{}{"startup": 2, "cleanup": 1}})
	bus.Close()

	done := make(chan struct{})
	go func() {
		listener.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after bus was closed")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.EditorEvents.WithLabelValues(string(events.ActionCreated))))
	assert.Equal(t, 2.0, testutil.ToFloat64(collectors.ValidationFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(collectors.MigratedCommands.WithLabelValues("startup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collectors.MigratedCommands.WithLabelValues("cleanup")))
}

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := internalevents.NewChannelEventBus(1, logger.NewDiscardLogger())
	bus.Emit(events.Event{Type: events.ActionCreated})
	bus.Emit(events.Event{Type: events.ActionDeleted}) // dropped, must not block

	got := <-bus.GetChannel()
	assert.Equal(t, events.ActionCreated, got.Type)
	assert.Len(t, bus.GetChannel(), 0)
}

func TestNewCollectors_DoubleRegistrationFails(t *testing.T) {
	provider := metrics.NewPrometheusRegistryProvider()
	_, err := metrics.NewCollectors(provider.Registry())
	require.NoError(t, err)
	_, err = metrics.NewCollectors(provider.Registry())
	assert.Error(t, err)
}

func TestMetricsEventListener_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	log := logger.NewDiscardLogger()
	collectors, err := metrics.NewCollectors(metrics.NewPrometheusRegistryProvider().Registry())
	require.NoError(t, err)
	bus := internalevents.NewChannelEventBus(4, log)
	defer bus.Close()
	listener := internalevents.NewMetricsEventListener(bus, collectors, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Start(ctx)
		close(done)
	}()
	bus.Emit(events.Event{Type: events.ActionUpdated})
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}
