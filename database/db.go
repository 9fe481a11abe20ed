package database

import (
	"context"
	"fmt"
	"log/slog" // use slog for structured logging
	"time"

	"reviewhub/internal/config"
	"reviewhub/internal/microservices/http-api/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm opens the Postgres pool described by cfg and verifies it with a ping.
func OpenGorm(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsDevelopment() && cfg.LogLevel == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Ping(ctx, db); err != nil {
		// close the pool if ping fails to avoid resource leak
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Connected to the database successfully")
	return db, nil
}

// Migrate creates or updates the schema. The title_genres join table is
// registered first so gorm uses the explicit model with its cascades.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	if err := db.SetupJoinTable(&models.Title{}, "Genres", &models.TitleGenre{}); err != nil {
		return fmt.Errorf("setup title_genres join table: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Genre{},
		&models.Title{},
		&models.TitleGenre{},
		&models.Review{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// Ping checks the underlying connection pool.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
