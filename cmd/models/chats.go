package models

import (
	"gorm.io/gorm"
)

// Thread is the single conversation between two actors. The participant
// pair is stored normalized (ParticipantAID < ParticipantBID) so the
// unordered pair maps to exactly one row.
type Thread struct {
	gorm.Model
	ParticipantAID uint `gorm:"column:participant_a_id;not null;uniqueIndex:idx_thread_pair" json:"participant_a_id"`
	ParticipantBID uint `gorm:"column:participant_b_id;not null;uniqueIndex:idx_thread_pair" json:"participant_b_id"`

	ParticipantA *User `gorm:"foreignKey:ParticipantAID" json:"participant_a,omitempty"`
	ParticipantB *User `gorm:"foreignKey:ParticipantBID" json:"participant_b,omitempty"`
}

func (Thread) TableName() string {
	return "threads"
}

// Other returns the counterparty of userID in this thread.
func (t *Thread) Other(userID uint) uint {
	if t.ParticipantAID == userID {
		return t.ParticipantBID
	}
	return t.ParticipantAID
}

type Message struct {
	gorm.Model
	ThreadID uint   `gorm:"column:thread_id;not null;index" json:"thread_id"`
	SenderID uint   `gorm:"column:sender_id;not null" json:"sender_id"`
	Content  string `gorm:"column:content;type:text;not null" json:"content"`
	Read     bool   `gorm:"column:read;not null;default:false" json:"read"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
