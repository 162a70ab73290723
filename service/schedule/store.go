package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const clockLayout = "15:04"

// Store holds an expert's recurring weekly availability rules.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "schedule_store").Logger()}
}

// ClockMinutes parses an "HH:MM" clock string into minutes since midnight.
func ClockMinutes(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func validateRule(dayOfWeek int, start, end string) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return models.NewValidationError("day_of_week", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	startMin, err := ClockMinutes(start)
	if err != nil {
		return models.NewValidationError("start_time", "must be a HH:MM clock time")
	}
	endMin, err := ClockMinutes(end)
	if err != nil {
		return models.NewValidationError("end_time", "must be a HH:MM clock time")
	}
	if startMin >= endMin {
		return models.NewValidationError("end_time", "must be after start_time")
	}
	return nil
}

// Add creates a weekly availability rule. Re-adding an identical
// (expert, day, start, end) rule reactivates the existing row instead of
// duplicating it, so deactivation history never blocks re-authoring.
func (s *Store) Add(ctx context.Context, expertID uint, dayOfWeek int, start, end string) (*models.ScheduleTemplate, error) {
	if err := validateRule(dayOfWeek, start, end); err != nil {
		return nil, err
	}

	var existing models.ScheduleTemplate
	err := s.db.WithContext(ctx).
		Where("expert_id = ? AND day_of_week = ? AND start_time = ? AND end_time = ?",
			expertID, dayOfWeek, start, end).
		First(&existing).Error
	if err == nil {
		if !existing.Active {
			existing.Active = true
			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return nil, err
			}
			s.logger.Info().Uint("template_id", existing.ID).Uint("expert_id", expertID).Msg("template reactivated")
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	template := models.ScheduleTemplate{
		ExpertID:  expertID,
		DayOfWeek: dayOfWeek,
		StartTime: start,
		EndTime:   end,
		Active:    true,
	}
	if err := s.db.WithContext(ctx).Create(&template).Error; err != nil {
		return nil, err
	}
	s.logger.Info().Uint("template_id", template.ID).Uint("expert_id", expertID).Msg("template created")
	return &template, nil
}

// Deactivate soft-disables a template owned by ownerID. Unknown and unowned
// ids are reported identically; deactivating an inactive template is a no-op.
func (s *Store) Deactivate(ctx context.Context, templateID, ownerID uint) error {
	var template models.ScheduleTemplate
	err := s.db.WithContext(ctx).
		Where("id = ? AND expert_id = ?", templateID, ownerID).
		First(&template).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	if err != nil {
		return err
	}

	if !template.Active {
		return nil
	}

	template.Active = false
	if err := s.db.WithContext(ctx).Save(&template).Error; err != nil {
		return err
	}
	s.logger.Info().Uint("template_id", template.ID).Uint("expert_id", ownerID).Msg("template deactivated")
	return nil
}

// List returns an expert's templates, optionally restricted to active ones.
func (s *Store) List(ctx context.Context, expertID uint, activeOnly bool) ([]models.ScheduleTemplate, error) {
	query := s.db.WithContext(ctx).Where("expert_id = ?", expertID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var templates []models.ScheduleTemplate
	if err := query.Order("day_of_week, start_time").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}
