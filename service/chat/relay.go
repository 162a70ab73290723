package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/consultly/consultly-server/service/events"
	"github.com/rs/zerolog"
)

// Pusher delivers a payload to one actor's live channel. Push reports
// whether delivery was handed to a connected channel; it must never block.
type Pusher interface {
	Push(userID uint, payload []byte) bool
}

// Relay turns booking events into conversation messages and best-effort
// live pushes. Persistence is the delivery guarantee: an offline recipient
// finds the message in thread history on next fetch. Everything here is
// downstream of a committed ledger write, so errors are logged and
// swallowed, never surfaced to the triggering request.
type Relay struct {
	store  *Store
	pusher Pusher
	logger zerolog.Logger
}

func NewRelay(store *Store, pusher Pusher, logger zerolog.Logger) *Relay {
	return &Relay{
		store:  store,
		pusher: pusher,
		logger: logger.With().Str("component", "notification_relay").Logger(),
	}
}

type messageEnvelope struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

type bookingEnvelope struct {
	Type      string `json:"type"`
	BookingID uint   `json:"booking_id"`
	Reference string `json:"reference"`
	ExpertID  uint   `json:"expert_id"`
	ClientID  uint   `json:"client_id"`
	Date      string `json:"date"`
	TimeRange string `json:"time_range"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// HandleBookingEvent is subscribed on the event bus. The actor's
// counterparty gets the message and the lifecycle frame.
func (r *Relay) HandleBookingEvent(evt events.BookingEvent) {
	ctx := context.Background()

	recipient := evt.ExpertID
	if evt.ActorID != evt.ClientID {
		recipient = evt.ClientID
	}

	thread, err := r.store.GetOrCreateThread(ctx, evt.ExpertID, evt.ClientID)
	if err != nil {
		r.logger.Error().Err(err).Uint("booking_id", evt.BookingID).Msg("failed to resolve thread")
		return
	}

	message, err := r.store.AppendMessage(ctx, thread.ID, evt.ActorID, composeContent(evt))
	if err != nil {
		r.logger.Error().Err(err).Uint("booking_id", evt.BookingID).Msg("failed to persist notification message")
		return
	}

	delivered := r.push(recipient, messageEnvelope{Type: "new_message", Message: message})
	if delivered {
		r.push(recipient, bookingEnvelope{
			Type:      evt.Type,
			BookingID: evt.BookingID,
			Reference: evt.Reference,
			ExpertID:  evt.ExpertID,
			ClientID:  evt.ClientID,
			Date:      evt.Date.Format(utils.DateLayout),
			TimeRange: evt.TimeRange,
			Status:    evt.Status,
			Reason:    evt.Reason,
		})
	}

	r.logger.Info().
		Str("event_type", evt.Type).
		Uint("booking_id", evt.BookingID).
		Str("reference", evt.Reference).
		Str("status", evt.Status).
		Uint("recipient_id", recipient).
		Bool("delivered_live", delivered).
		Msg("booking notification relayed")
}

// SendPeerMessage persists a direct chat message and pushes it to the
// recipient if connected. Used by the websocket transport.
func (r *Relay) SendPeerMessage(ctx context.Context, senderID, receiverID uint, content string) (*models.Message, error) {
	thread, err := r.store.GetOrCreateThread(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}

	message, err := r.store.AppendMessage(ctx, thread.ID, senderID, content)
	if err != nil {
		return nil, err
	}

	r.push(receiverID, messageEnvelope{Type: "new_message", Message: message})
	return message, nil
}

func (r *Relay) push(userID uint, payload interface{}) bool {
	if r.pusher == nil {
		return false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to marshal push payload")
		return false
	}
	return r.pusher.Push(userID, data)
}

func composeContent(evt events.BookingEvent) string {
	slot := fmt.Sprintf("%s %s", evt.Date.Format(utils.DateLayout), evt.TimeRange)

	switch evt.Status {
	case models.BookingStatusPending:
		content := fmt.Sprintf("New consultation request for %s.", slot)
		if evt.ClientMessage != "" {
			content += fmt.Sprintf("\n\nMessage: %s", evt.ClientMessage)
		}
		return content
	case models.BookingStatusConfirmed:
		return fmt.Sprintf("Your booking for %s has been confirmed.", slot)
	case models.BookingStatusRejected:
		content := fmt.Sprintf("Your booking for %s has been declined.", slot)
		if evt.Reason != "" {
			content += fmt.Sprintf("\n\nReason: %s", evt.Reason)
		}
		return content
	case models.BookingStatusCancelled:
		content := fmt.Sprintf("The booking for %s has been cancelled.", slot)
		if evt.Reason != "" {
			content += fmt.Sprintf("\n\nReason: %s", evt.Reason)
		}
		return content
	default:
		return fmt.Sprintf("Booking for %s is now %s.", slot, evt.Status)
	}
}
