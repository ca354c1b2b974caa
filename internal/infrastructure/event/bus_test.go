package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/facture/backend/internal/domain/shared"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	fail     error
	panics   bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.received = append(h.received, event)
	return h.fail
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func newTestEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New())
	return &e
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers events to subscribed handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"InvoiceFinalized"}}
		bus.Subscribe(handler)

		evt := newTestEvent("InvoiceFinalized")
		require.NoError(t, bus.Publish(context.Background(), evt))

		require.Len(t, handler.received, 1)
		assert.Equal(t, evt.EventID(), handler.received[0].EventID())
	})

	t.Run("does not deliver unrelated event types", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{types: []string{"InvoiceFinalized"}}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceSent")))
		assert.Empty(t, handler.received)
	})

	t.Run("wildcard handler receives all events", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := &recordingHandler{}
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(),
			newTestEvent("InvoiceFinalized"),
			newTestEvent("PaymentRecorded"),
		))
		assert.Len(t, handler.received, 2)
	})

	t.Run("handler failure does not stop other handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{"InvoiceFinalized"}, fail: errors.New("nope")}
		healthy := &recordingHandler{types: []string{"InvoiceFinalized"}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceFinalized")))
		assert.Len(t, healthy.received, 1)
	})

	t.Run("handler panic is recovered", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := &recordingHandler{types: []string{"InvoiceFinalized"}, panics: true}
		healthy := &recordingHandler{types: []string{"InvoiceFinalized"}}
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		assert.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newTestEvent("InvoiceFinalized"))
		})
		assert.Len(t, healthy.received, 1)
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &recordingHandler{types: []string{"InvoiceFinalized"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceFinalized")))
	assert.Empty(t, handler.received)
}
