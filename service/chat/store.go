package chat

import (
	"context"
	"errors"

	"github.com/consultly/consultly-server/cmd/models"
	"gorm.io/gorm"
)

// Store persists conversation threads and their messages. A thread is keyed
// by the unordered pair of its two participants, so every notice and chat
// message between the same two actors lands in one place.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func normalizePair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// GetOrCreateThread resolves the thread between two actors, creating it on
// first contact. A concurrent first-contact race loses on the pair's unique
// index and falls back to the winner's row.
func (s *Store) GetOrCreateThread(ctx context.Context, userA, userB uint) (*models.Thread, error) {
	if userA == userB {
		return nil, models.NewValidationError("participant", "cannot open a thread with yourself")
	}
	lo, hi := normalizePair(userA, userB)

	var thread models.Thread
	err := s.db.WithContext(ctx).
		Where("participant_a_id = ? AND participant_b_id = ?", lo, hi).
		First(&thread).Error
	if err == nil {
		return &thread, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	thread = models.Thread{ParticipantAID: lo, ParticipantBID: hi}
	err = s.db.WithContext(ctx).Create(&thread).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = s.db.WithContext(ctx).
			Where("participant_a_id = ? AND participant_b_id = ?", lo, hi).
			First(&thread).Error
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// AppendMessage persists a message authored by senderID in the thread.
func (s *Store) AppendMessage(ctx context.Context, threadID, senderID uint, content string) (*models.Message, error) {
	if content == "" {
		return nil, models.NewValidationError("content", "is required")
	}
	message := models.Message{
		ThreadID: threadID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// MessagesBetween returns the full history between two actors, oldest
// first, and marks the peer's messages as read. No thread yet means empty
// history, not an error.
func (s *Store) MessagesBetween(ctx context.Context, userID, peerID uint) ([]models.Message, error) {
	lo, hi := normalizePair(userID, peerID)

	var thread models.Thread
	err := s.db.WithContext(ctx).
		Where("participant_a_id = ? AND participant_b_id = ?", lo, hi).
		First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.WithContext(ctx).
		Where("thread_id = ?", thread.ID).
		Order("created_at asc, id asc").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("thread_id = ? AND sender_id = ? AND read = ?", thread.ID, peerID, false).
		Update("read", true).Error; err != nil {
		return nil, err
	}

	return messages, nil
}

// ThreadsFor lists every thread the actor participates in, most recently
// updated first.
func (s *Store) ThreadsFor(ctx context.Context, userID uint) ([]models.Thread, error) {
	var threads []models.Thread
	if err := s.db.WithContext(ctx).
		Where("participant_a_id = ? OR participant_b_id = ?", userID, userID).
		Order("updated_at desc").
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}
