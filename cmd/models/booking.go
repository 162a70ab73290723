package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking lifecycle states. Pending and confirmed bookings hold their slot;
// rejected and cancelled are terminal and release it.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusRejected  = "rejected"
	BookingStatusCancelled = "cancelled"
)

// Booking is a client's reservation against one expert's slot. Rows are
// never deleted; state transitions are the only mutation.
//
// The partial unique index over (expert_id, date, start_time, end_time) is
// the storage-level guarantee that at most one non-terminal booking holds a
// slot key at a time. Concurrent creates race on the insert and the loser
// sees a duplicate-key error.
type Booking struct {
	gorm.Model
	Reference     string    `gorm:"column:reference;size:36;not null;uniqueIndex" json:"reference"`
	ExpertID      uint      `gorm:"column:expert_id;not null;uniqueIndex:idx_booking_slot" json:"expert_id"`
	ClientID      uint      `gorm:"column:client_id;not null" json:"client_id"`
	Date          time.Time `gorm:"column:date;not null;uniqueIndex:idx_booking_slot" json:"date"`
	StartTime     string    `gorm:"column:start_time;size:5;not null;uniqueIndex:idx_booking_slot" json:"start_time"`
	EndTime       string    `gorm:"column:end_time;size:5;not null;uniqueIndex:idx_booking_slot,where:status = 'pending' OR status = 'confirmed'" json:"end_time"`
	Status        string    `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	ClientMessage string    `gorm:"column:client_message;type:text" json:"client_message,omitempty"`
	Reason        string    `gorm:"column:reason;type:text" json:"reason,omitempty"`

	Expert *User `gorm:"foreignKey:ExpertID" json:"expert,omitempty"`
	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (Booking) TableName() string {
	return "bookings"
}

// TimeRange renders the booked range, e.g. "09:00-10:00".
func (b *Booking) TimeRange() string {
	return b.StartTime + "-" + b.EndTime
}

// Terminal reports whether the booking has released its slot.
func (b *Booking) Terminal() bool {
	return b.Status == BookingStatusRejected || b.Status == BookingStatusCancelled
}
