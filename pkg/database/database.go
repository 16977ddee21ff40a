package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ottoassistant/pkg/config"
	"ottoassistant/pkg/models"
)

// Connect opens the Postgres connection and migrates the schema.
func Connect(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s port=%s password=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBName, cfg.DBPort, cfg.DBPassword)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.CalendarToken{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	log.WithField("host", cfg.DBHost).Info("database connected")
	return db, nil
}
