package models

import (
	"gorm.io/gorm"
)

// ScheduleTemplate is a recurring weekly availability rule owned by one
// expert. Templates are deactivated rather than deleted because bookings
// made from them remain on record.
//
// DayOfWeek follows time.Weekday: 0 = Sunday through 6 = Saturday.
// StartTime and EndTime are clock strings in "HH:MM" form, interpreted in
// the service's single reference timezone.
type ScheduleTemplate struct {
	gorm.Model
	ExpertID  uint   `gorm:"column:expert_id;not null;uniqueIndex:idx_template_rule" json:"expert_id"`
	DayOfWeek int    `gorm:"column:day_of_week;not null;uniqueIndex:idx_template_rule" json:"day_of_week"`
	StartTime string `gorm:"column:start_time;size:5;not null;uniqueIndex:idx_template_rule" json:"start_time"`
	EndTime   string `gorm:"column:end_time;size:5;not null;uniqueIndex:idx_template_rule" json:"end_time"`
	Active    bool   `gorm:"column:active;not null;default:true" json:"active"`
}

func (ScheduleTemplate) TableName() string {
	return "schedule_templates"
}

// TimeRange renders the template's slot key segment, e.g. "09:00-10:00".
func (t *ScheduleTemplate) TimeRange() string {
	return t.StartTime + "-" + t.EndTime
}
