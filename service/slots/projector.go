package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/cmd/utils"
	"github.com/consultly/consultly-server/service/schedule"
	"gorm.io/gorm"
)

// DefaultWindowDays bounds projection when the caller gives no window end.
const DefaultWindowDays = 30

// Candidate is a concrete, dated, bookable time range derived from a
// template. It exists only in projection output, never in storage.
type Candidate struct {
	Date            time.Time `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TemplateID      uint      `json:"template_id"`
}

// TimeRange renders the candidate's range, e.g. "09:00-10:00".
func (c *Candidate) TimeRange() string {
	return c.StartTime + "-" + c.EndTime
}

// Key is the (date, time-range) occupancy key within one expert's calendar.
func (c *Candidate) Key() string {
	return SlotKey(c.Date, c.StartTime, c.EndTime)
}

func SlotKey(date time.Time, start, end string) string {
	return fmt.Sprintf("%s|%s-%s", date.Format(utils.DateLayout), start, end)
}

// Projector expands an expert's active templates into concrete slot
// candidates over a bounded window, dropping slots held by non-terminal
// bookings.
type Projector struct {
	db *gorm.DB
}

func NewProjector(db *gorm.DB) *Projector {
	return &Projector{db: db}
}

// Project emits one candidate per (calendar day in [windowStart, windowEnd),
// template matching that day-of-week). Overlapping same-day templates are
// each projected; output is day-ordered but callers needing strict
// chronological order must sort.
func (p *Projector) Project(ctx context.Context, expertID uint, windowStart, windowEnd time.Time) ([]Candidate, error) {
	start := utils.DateOnly(windowStart)
	end := utils.DateOnly(windowEnd)
	if !end.After(start) {
		return nil, nil
	}

	var templates []models.ScheduleTemplate
	if err := p.db.WithContext(ctx).
		Where("expert_id = ? AND active = ?", expertID, true).
		Find(&templates).Error; err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, nil
	}

	byDay := make(map[int][]models.ScheduleTemplate)
	for _, t := range templates {
		byDay[t.DayOfWeek] = append(byDay[t.DayOfWeek], t)
	}

	occupied, err := p.occupiedKeys(ctx, expertID, start, end)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		for _, t := range byDay[int(day.Weekday())] {
			if _, taken := occupied[SlotKey(day, t.StartTime, t.EndTime)]; taken {
				continue
			}
			startMin, err := schedule.ClockMinutes(t.StartTime)
			if err != nil {
				return nil, err
			}
			endMin, err := schedule.ClockMinutes(t.EndTime)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, Candidate{
				Date:            day,
				StartTime:       t.StartTime,
				EndTime:         t.EndTime,
				DurationMinutes: endMin - startMin,
				TemplateID:      t.ID,
			})
		}
	}
	return candidates, nil
}

func (p *Projector) occupiedKeys(ctx context.Context, expertID uint, start, end time.Time) (map[string]struct{}, error) {
	var bookings []models.Booking
	if err := p.db.WithContext(ctx).
		Where("expert_id = ? AND status IN ? AND date >= ? AND date < ?",
			expertID,
			[]string{models.BookingStatusPending, models.BookingStatusConfirmed},
			start, end).
		Find(&bookings).Error; err != nil {
		return nil, err
	}

	occupied := make(map[string]struct{}, len(bookings))
	for _, b := range bookings {
		occupied[SlotKey(utils.DateOnly(b.Date), b.StartTime, b.EndTime)] = struct{}{}
	}
	return occupied, nil
}
