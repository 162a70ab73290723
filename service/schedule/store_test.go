package schedule

import (
	"context"
	"testing"

	"github.com/consultly/consultly-server/cmd/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func TestAddTemplate(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	template, err := store.Add(ctx, 1, 1, "09:00", "10:00")
	require.NoError(t, err)
	assert.True(t, template.Active)
	assert.Equal(t, uint(1), template.ExpertID)
	assert.Equal(t, "09:00-10:00", template.TimeRange())

	templates, err := store.List(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, templates, 1)
}

func TestAddTemplateRejectsInvalidInput(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		name       string
		day        int
		start, end string
	}{
		{"start equals end", 1, "09:00", "09:00"},
		{"start after end", 1, "10:00", "09:00"},
		{"day too large", 7, "09:00", "10:00"},
		{"day negative", -1, "09:00", "10:00"},
		{"malformed start", 1, "9am", "10:00"},
		{"malformed end", 1, "09:00", "25:00"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Add(ctx, 1, tc.day, tc.start, tc.end)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestAddIdenticalTemplateReactivates(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	original, err := store.Add(ctx, 1, 1, "09:00", "10:00")
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, original.ID, 1))

	readded, err := store.Add(ctx, 1, 1, "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, original.ID, readded.ID)
	assert.True(t, readded.Active)

	all, err := store.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 1, "re-adding must not duplicate the rule")
}

func TestDeactivate(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	template, err := store.Add(ctx, 1, 2, "14:00", "15:00")
	require.NoError(t, err)

	require.NoError(t, store.Deactivate(ctx, template.ID, 1))

	active, err := store.List(ctx, 1, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	// Idempotent on an already-inactive template.
	require.NoError(t, store.Deactivate(ctx, template.ID, 1))
}

func TestDeactivateUnknownOrUnowned(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	template, err := store.Add(ctx, 1, 2, "14:00", "15:00")
	require.NoError(t, err)

	err = store.Deactivate(ctx, template.ID, 99)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = store.Deactivate(ctx, 12345, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListActiveOnly(t *testing.T) {
	store := NewStore(setupTestDB(t), zerolog.Nop())
	ctx := context.Background()

	first, err := store.Add(ctx, 1, 1, "09:00", "10:00")
	require.NoError(t, err)
	_, err = store.Add(ctx, 1, 3, "11:00", "12:00")
	require.NoError(t, err)
	require.NoError(t, store.Deactivate(ctx, first.ID, 1))

	active, err := store.List(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 3, active[0].DayOfWeek)

	all, err := store.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
