package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/service/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var monday = time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.ScheduleTemplate{},
		&models.Booking{},
		&models.Thread{},
		&models.Message{},
	))
	return db
}

// fakePusher stands in for the presence hub: only ids marked online accept
// payloads.
type fakePusher struct {
	mu       sync.Mutex
	online   map[uint]bool
	payloads map[uint][][]byte
}

func newFakePusher(onlineIDs ...uint) *fakePusher {
	online := make(map[uint]bool, len(onlineIDs))
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &fakePusher{online: online, payloads: make(map[uint][][]byte)}
}

func (p *fakePusher) Push(userID uint, payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userID] {
		return false
	}
	p.payloads[userID] = append(p.payloads[userID], payload)
	return true
}

func (p *fakePusher) delivered(userID uint) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payloads[userID]
}

func bookingRequestEvent() events.BookingEvent {
	return events.BookingEvent{
		Type:          events.TypeBookingRequest,
		BookingID:     1,
		Reference:     "ref-1",
		ExpertID:      2,
		ClientID:      9,
		ActorID:       9,
		Date:          monday,
		TimeRange:     "09:00-10:00",
		Status:        models.BookingStatusPending,
		ClientMessage: "first session",
	}
}

func TestThreadPairIsUnordered(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	first, err := store.GetOrCreateThread(ctx, 9, 2)
	require.NoError(t, err)
	second, err := store.GetOrCreateThread(ctx, 2, 9)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Less(t, first.ParticipantAID, first.ParticipantBID)
	assert.Equal(t, uint(9), first.Other(2))
	assert.Equal(t, uint(2), first.Other(9))
}

func TestThreadWithSelfRejected(t *testing.T) {
	store := NewStore(setupTestDB(t))

	_, err := store.GetOrCreateThread(context.Background(), 5, 5)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestRelayPersistsForOfflineRecipient(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	pusher := newFakePusher() // nobody online
	relay := NewRelay(store, pusher, zerolog.Nop())

	relay.HandleBookingEvent(bookingRequestEvent())

	// The expert was offline, yet the message is durable and shows up in
	// the thread history fetch.
	messages, err := store.MessagesBetween(context.Background(), 2, 9)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, uint(9), messages[0].SenderID)
	assert.Contains(t, messages[0].Content, "2026-08-31 09:00-10:00")
	assert.Contains(t, messages[0].Content, "first session")
	assert.Empty(t, pusher.delivered(2))
}

func TestRelayPushesToConnectedRecipient(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	pusher := newFakePusher(2)
	relay := NewRelay(store, pusher, zerolog.Nop())

	relay.HandleBookingEvent(bookingRequestEvent())

	frames := pusher.delivered(2)
	require.Len(t, frames, 2)

	var msgFrame struct {
		Type    string          `json:"type"`
		Message *models.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &msgFrame))
	assert.Equal(t, "new_message", msgFrame.Type)
	require.NotNil(t, msgFrame.Message)
	assert.Equal(t, uint(9), msgFrame.Message.SenderID)

	var lifecycle struct {
		Type      string `json:"type"`
		BookingID uint   `json:"booking_id"`
		TimeRange string `json:"time_range"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(frames[1], &lifecycle))
	assert.Equal(t, events.TypeBookingRequest, lifecycle.Type)
	assert.Equal(t, uint(1), lifecycle.BookingID)
	assert.Equal(t, "09:00-10:00", lifecycle.TimeRange)
	assert.Equal(t, models.BookingStatusPending, lifecycle.Status)
}

func TestRelayNotifiesClientOnStatusChange(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	pusher := newFakePusher(9)
	relay := NewRelay(store, pusher, zerolog.Nop())

	evt := bookingRequestEvent()
	evt.Type = events.TypeBookingStatusUpdate
	evt.ActorID = 2 // expert rejects
	evt.Status = models.BookingStatusRejected
	evt.Reason = "schedule conflict"
	relay.HandleBookingEvent(evt)

	frames := pusher.delivered(9)
	require.Len(t, frames, 2)

	messages, err := store.MessagesBetween(context.Background(), 9, 2)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, uint(2), messages[0].SenderID)
	assert.Contains(t, messages[0].Content, "declined")
	assert.Contains(t, messages[0].Content, "schedule conflict")
}

func TestSendPeerMessage(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	pusher := newFakePusher(7)
	relay := NewRelay(store, pusher, zerolog.Nop())
	ctx := context.Background()

	message, err := relay.SendPeerMessage(ctx, 3, 7, "hello there")
	require.NoError(t, err)
	assert.Equal(t, uint(3), message.SenderID)

	require.Len(t, pusher.delivered(7), 1)

	history, err := store.MessagesBetween(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "hello there", history[0].Content)
}

func TestMessagesBetweenMarksRead(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	thread, err := store.GetOrCreateThread(ctx, 3, 7)
	require.NoError(t, err)
	_, err = store.AppendMessage(ctx, thread.ID, 3, "ping")
	require.NoError(t, err)

	// Recipient fetches: the peer's message is returned and marked read.
	messages, err := store.MessagesBetween(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.False(t, messages[0].Read)

	var stored models.Message
	require.NoError(t, db.First(&stored, messages[0].ID).Error)
	assert.True(t, stored.Read)
}

func TestAppendMessageRequiresContent(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	thread, err := store.GetOrCreateThread(ctx, 3, 7)
	require.NoError(t, err)

	_, err = store.AppendMessage(ctx, thread.ID, 3, "")
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
}
