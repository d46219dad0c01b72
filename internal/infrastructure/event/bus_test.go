package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/knjigovodja/backend/internal/domain/booking"
	"github.com/knjigovodja/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
}

func (h *captureHandler) EventTypes() []string {
	return h.types
}

func (h *captureHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *captureHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}

func submittedEvent(t *testing.T) shared.DomainEvent {
	t.Helper()
	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bp, err := booking.NewBookingProposal(booking.NewBookingProposalParams{
		DocumentType: booking.DocumentTypeUlazniRacun,
		ClientID:     "obrt-horvat",
		Counterparty: "HEP d.d.",
		DocumentDate: &date,
		UkupniIznos:  decimal.NewFromInt(500),
		Confidence:   0.9,
	})
	require.NoError(t, err)
	events := bp.GetDomainEvents()
	require.Len(t, events, 1)
	return events[0]
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &captureHandler{types: []string{"BookingSubmitted"}}
	bus.Subscribe(handler)

	event := submittedEvent(t)
	require.NoError(t, bus.Publish(context.Background(), event))

	received := handler.received()
	require.Len(t, received, 1)
	assert.Equal(t, event.EventID(), received[0].EventID())
	assert.Equal(t, "BookingSubmitted", received[0].EventType())
}

func TestPublishSkipsUnrelatedTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &captureHandler{types: []string{"BookingRejected"}}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Empty(t, handler.received())
}

func TestExplicitSubscriptionOverridesHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &captureHandler{types: []string{"BookingRejected"}}
	bus.Subscribe(handler, "BookingSubmitted")

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Len(t, handler.received(), 1)
}

func TestHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &captureHandler{types: []string{"BookingSubmitted"}, err: errors.New("boom")}
	healthy := &captureHandler{types: []string{"BookingSubmitted"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Len(t, failing.received(), 1)
	assert.Len(t, healthy.received(), 1)
}

func TestSubscribeWithoutEventTypesIsIgnored(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &captureHandler{}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Empty(t, handler.received())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := &captureHandler{types: []string{"BookingSubmitted"}}
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Empty(t, handler.received())
}

type panickingHandler struct{}

func (h *panickingHandler) EventTypes() []string { return []string{"BookingSubmitted"} }

func (h *panickingHandler) Handle(context.Context, shared.DomainEvent) error {
	panic("handler bug")
}

func TestPublishRecoversFromHandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(&panickingHandler{})
	healthy := &captureHandler{types: []string{"BookingSubmitted"}}
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), submittedEvent(t)))
	assert.Len(t, healthy.received(), 1)
}

func TestAuditSubscriber(t *testing.T) {
	sub := NewAuditSubscriber(zap.NewNop())
	assert.ElementsMatch(t, []string{
		"BookingSubmitted", "BookingApproved", "BookingRejected", "BookingCorrected",
	}, sub.EventTypes())

	assert.NoError(t, sub.Handle(context.Background(), submittedEvent(t)))
}
