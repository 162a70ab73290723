package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/consultly/consultly-server/cmd/api"
	"github.com/consultly/consultly-server/cmd/models"
	"github.com/consultly/consultly-server/db"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	logger := newLogger()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(logger)
			return
		default:
			logger.Fatal().Str("command", os.Args[1]).Msg("unknown command")
		}
	}

	startServer(logger)
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
}

func runMigrations(logger zerolog.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatal().Err(err).Msg("database initialization error")
	}
	defer closeDB(DB, logger)
	logger.Info().Msg("connected to the database for migrations")

	if err := performMigrations(DB, logger); err != nil {
		logger.Fatal().Err(err).Msg("migration error")
	}
	logger.Info().Msg("migrations completed successfully")
}

func performMigrations(DB *gorm.DB, logger zerolog.Logger) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.ScheduleTemplate{}, "ScheduleTemplate"},
		{&models.Booking{}, "Booking"},
		{&models.Thread{}, "Thread"},
		{&models.Message{}, "Message"},
	}

	logger.Info().Msg("starting database migrations")
	for _, m := range migrations {
		logger.Info().Str("table", m.name).Msg("migrating")
		if err := DB.AutoMigrate(m.model); err != nil {
			return err
		}
	}
	return nil
}

func startServer(logger zerolog.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		logger.Fatal().Err(err).Msg("database initialization error")
	}
	defer closeDB(DB, logger)
	logger.Info().Msg("connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, logger)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()
	logger.Info().Str("port", port).Msg("server started")

	<-quit
	logger.Info().Msg("shutting down server")
}

func closeDB(DB *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := DB.DB()
	if err == nil {
		sqlDB.Close()
	}
	logger.Info().Msg("database connection closed")
}
