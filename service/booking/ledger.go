package booking

import (
	"context"
	"errors"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/consultly/consultly-server/service/events"
	"github.com/consultly/consultly-server/service/slots"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Publisher receives booking events after their ledger write has committed.
type Publisher interface {
	Publish(events.BookingEvent)
}

// Ledger is the authoritative record of booking requests and their state
// transitions:
//
//	pending -> confirmed | rejected   (expert only)
//	confirmed -> cancelled            (expert or client)
//
// Rejected and cancelled are terminal. Writes are the source of truth;
// notification delivery failures never roll a transition back.
type Ledger struct {
	db        *gorm.DB
	projector *slots.Projector
	publisher Publisher
	logger    zerolog.Logger
}

func NewLedger(db *gorm.DB, projector *slots.Projector, publisher Publisher, logger zerolog.Logger) *Ledger {
	return &Ledger{
		db:        db,
		projector: projector,
		publisher: publisher,
		logger:    logger.With().Str("component", "booking_ledger").Logger(),
	}
}

type CreateParams struct {
	ExpertID      uint
	Date          time.Time
	StartTime     string
	EndTime       string
	ClientMessage string
}

// Create inserts a pending booking for clientID. The requested slot is
// re-validated against a fresh one-day projection so stale client-held slot
// lists cannot book retired or occupied slots. The insert itself races
// under the partial unique index; the loser gets ErrSlotUnavailable.
func (l *Ledger) Create(ctx context.Context, clientID uint, p CreateParams) (*models.Booking, error) {
	if clientID == p.ExpertID {
		return nil, models.NewValidationError("expert_id", "cannot book your own schedule")
	}

	date := utils.DateOnly(p.Date)
	candidates, err := l.projector.Project(ctx, p.ExpertID, date, date.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	wanted := slots.SlotKey(date, p.StartTime, p.EndTime)
	offered := false
	for _, c := range candidates {
		if c.Key() == wanted {
			offered = true
			break
		}
	}
	if !offered {
		return nil, models.ErrSlotUnavailable
	}

	booking := models.Booking{
		Reference:     uuid.NewString(),
		ExpertID:      p.ExpertID,
		ClientID:      clientID,
		Date:          date,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		Status:        models.BookingStatusPending,
		ClientMessage: p.ClientMessage,
	}
	if err := l.db.WithContext(ctx).Create(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.ErrSlotUnavailable
		}
		return nil, err
	}

	l.logger.Info().
		Uint("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Uint("expert_id", booking.ExpertID).
		Uint("client_id", booking.ClientID).
		Str("slot", wanted).
		Msg("booking created")

	l.publish(events.TypeBookingRequest, &booking, clientID)
	return &booking, nil
}

// Confirm moves a pending booking to confirmed. Expert only.
func (l *Ledger) Confirm(ctx context.Context, actorID, bookingID uint) (*models.Booking, error) {
	booking, err := l.expertAction(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	return l.transition(ctx, booking, models.BookingStatusPending, models.BookingStatusConfirmed, "", actorID)
}

// Reject moves a pending booking to rejected with an optional reason.
// Expert only.
func (l *Ledger) Reject(ctx context.Context, actorID, bookingID uint, reason string) (*models.Booking, error) {
	booking, err := l.expertAction(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	return l.transition(ctx, booking, models.BookingStatusPending, models.BookingStatusRejected, reason, actorID)
}

// Cancel moves a confirmed booking to cancelled. Either party may cancel.
func (l *Ledger) Cancel(ctx context.Context, actorID, bookingID uint, reason string) (*models.Booking, error) {
	booking, err := l.participantBooking(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	return l.transition(ctx, booking, models.BookingStatusConfirmed, models.BookingStatusCancelled, reason, actorID)
}

// Get returns a booking visible to actorID. Non-participants learn nothing.
func (l *Ledger) Get(ctx context.Context, actorID, bookingID uint) (*models.Booking, error) {
	return l.participantBooking(ctx, actorID, bookingID)
}

// ListForExpert returns an expert's bookings, newest first.
func (l *Ledger) ListForExpert(ctx context.Context, expertID uint, status string, page, pageSize int) ([]models.Booking, int64, error) {
	return l.list(ctx, "expert_id", expertID, status, page, pageSize)
}

// ListForClient returns a client's bookings, newest first.
func (l *Ledger) ListForClient(ctx context.Context, clientID uint, status string, page, pageSize int) ([]models.Booking, int64, error) {
	return l.list(ctx, "client_id", clientID, status, page, pageSize)
}

func (l *Ledger) list(ctx context.Context, column string, id uint, status string, page, pageSize int) ([]models.Booking, int64, error) {
	query := l.db.WithContext(ctx).Model(&models.Booking{}).Where(column+" = ?", id)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("date DESC, start_time DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (l *Ledger) participantBooking(ctx context.Context, actorID, bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := l.db.WithContext(ctx).First(&booking, bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if actorID != booking.ExpertID && actorID != booking.ClientID {
		return nil, models.ErrNotFound
	}
	return &booking, nil
}

func (l *Ledger) expertAction(ctx context.Context, actorID, bookingID uint) (*models.Booking, error) {
	booking, err := l.participantBooking(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != booking.ExpertID {
		return nil, models.ErrInvalidTransition
	}
	return booking, nil
}

// transition performs the guarded state write. The WHERE clause pins the
// expected current status, so a concurrent transition that got there first
// leaves zero affected rows and this attempt fails as InvalidTransition.
func (l *Ledger) transition(ctx context.Context, booking *models.Booking, from, to, reason string, actorID uint) (*models.Booking, error) {
	updates := map[string]interface{}{"status": to}
	if reason != "" {
		updates["reason"] = reason
	}

	result := l.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND status = ?", booking.ID, from).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, models.ErrInvalidTransition
	}

	booking.Status = to
	if reason != "" {
		booking.Reason = reason
	}

	l.logger.Info().
		Uint("booking_id", booking.ID).
		Str("reference", booking.Reference).
		Str("from", from).
		Str("to", to).
		Uint("actor_id", actorID).
		Msg("booking transitioned")

	l.publish(events.TypeBookingStatusUpdate, booking, actorID)
	return booking, nil
}

func (l *Ledger) publish(eventType string, booking *models.Booking, actorID uint) {
	if l.publisher == nil {
		return
	}
	l.publisher.Publish(events.BookingEvent{
		Type:          eventType,
		BookingID:     booking.ID,
		Reference:     booking.Reference,
		ExpertID:      booking.ExpertID,
		ClientID:      booking.ClientID,
		ActorID:       actorID,
		Date:          booking.Date,
		TimeRange:     booking.TimeRange(),
		Status:        booking.Status,
		Reason:        booking.Reason,
		ClientMessage: booking.ClientMessage,
	})
}
