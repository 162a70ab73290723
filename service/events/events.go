package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Booking lifecycle event types, as delivered to connected peers.
const (
	TypeBookingRequest      = "booking_request"
	TypeBookingStatusUpdate = "booking_status_update"
)

// BookingEvent is published by the ledger after a booking write commits.
// ActorID is the party whose action caused the transition; the relay
// notifies the counterparty.
type BookingEvent struct {
	Type          string
	BookingID     uint
	Reference     string
	ExpertID      uint
	ClientID      uint
	ActorID       uint
	Date          time.Time
	TimeRange     string
	Status        string
	Reason        string
	ClientMessage string
}

type Handler func(BookingEvent)

// Bus fans booking events out to subscribers in-process and synchronously.
// The ledger's write is authoritative by the time an event is published, so
// subscriber failures must never propagate back: panics are contained and
// logged here.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "event_bus").Logger()}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(evt BookingEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, evt)
	}
}

func (b *Bus) dispatch(h Handler, evt BookingEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Uint("booking_id", evt.BookingID).
				Str("event_type", evt.Type).
				Msg("event subscriber panicked")
		}
	}()
	h(evt)
}
