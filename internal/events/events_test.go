package events

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()

	var got *Event
	bus.Subscribe(EventReservationCreated, func(e *Event) error {
		got = e
		return nil
	})

	payload := ReservationEventPayload{ReservationID: 7, EmployeeID: "emp-1", StartTime: "10:00"}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	require.NotNil(t, got)
	assert.Equal(t, EventReservationCreated, got.Type)

	var decoded ReservationEventPayload
	require.NoError(t, json.Unmarshal(got.Payload, &decoded))
	assert.Equal(t, int64(7), decoded.ReservationID)
	assert.Equal(t, "emp-1", decoded.EmployeeID)
	assert.Equal(t, "10:00", decoded.StartTime)
}

func TestPublishFanout(t *testing.T) {
	bus := NewEventBus()

	calls := make(map[string]int)
	bus.Subscribe(EventReservationCanceled, func(_ *Event) error { calls["a"]++; return nil })
	bus.Subscribe(EventReservationCanceled, func(_ *Event) error { calls["b"]++; return nil })
	// Другой тип — не должен получить событие
	bus.Subscribe(EventReservationConfirmed, func(_ *Event) error { calls["other"]++; return nil })

	bus.Publish(&Event{Type: EventReservationCanceled})

	assert.Equal(t, 1, calls["a"])
	assert.Equal(t, 1, calls["b"])
	assert.Zero(t, calls["other"])
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewEventBus()

	bus.Publish(&Event{Type: "nobody-listens"})
	assert.NoError(t, bus.PublishJSON("nobody-listens", nil))
}

func TestHandlerErrorDoesNotStopFanout(t *testing.T) {
	bus := NewEventBus()

	var secondCalled bool
	bus.Subscribe(EventSlotConflict, func(_ *Event) error { return errors.New("handler failed") })
	bus.Subscribe(EventSlotConflict, func(_ *Event) error { secondCalled = true; return nil })

	bus.Publish(&Event{Type: EventSlotConflict})
	assert.True(t, secondCalled)
}

func TestNewJSONEvent(t *testing.T) {
	payload := ReservationEventPayload{ReservationID: 123, EmployeeID: "emp-2", StartTime: "16:00"}

	event, err := NewJSONEvent(EventReservationCompleted, payload)
	require.NoError(t, err)

	assert.Equal(t, EventReservationCompleted, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded ReservationEventPayload
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	assert.Equal(t, int64(123), decoded.ReservationID)
}
